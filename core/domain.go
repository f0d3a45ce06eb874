package core

// DomainEntry is a single record attached to a domain: a typed value with
// an optional TTL override and priority, matching spec's record shape.
type DomainEntry struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	TTL      uint32 `json:"ttl,omitempty"`
	Priority uint32 `json:"priority,omitempty"`
}

// DomainRecord is the persisted record for one registered domain name.
type DomainRecord struct {
	Domain  string        `json:"domain"`
	Owner   Address       `json:"owner"`
	Records []DomainEntry `json:"records"`
	Expiry  int64         `json:"expiry,omitempty"`
}

// recordKey returns the index into Records for (type, name), or -1.
func (d *DomainRecord) recordKey(typ, name string) int {
	for i, r := range d.Records {
		if r.Type == typ && r.Name == name {
			return i
		}
	}
	return -1
}

// upsert writes rec keyed by (type, name); when multiple records share a
// key the most recently written wins, per spec's tie-break rule.
func (d *DomainRecord) upsert(rec DomainEntry) {
	if i := d.recordKey(rec.Type, rec.Name); i >= 0 {
		d.Records[i] = rec
		return
	}
	d.Records = append(d.Records, rec)
}

func domainKey(name string) []byte       { return []byte("domain/" + name) }
func ownerDomainsKey(owner Address) []byte { return []byte("owner_domains/" + owner.Hex()) }

// TLDConfig describes the registration policy for one top-level domain.
type TLDConfig struct {
	Enabled   bool
	MinLength int
	MaxLength int
	RegisterFee uint64
	RenewFee    uint64
	Admin       Address
}

// nativeTLDs is the union of spec.md's named examples (.ghost, .gcc, .warp,
// .arc, .gcp) and the broader native suffix table from the original Rust
// resolver (domains/ghost.rs), which spec.md's Non-goals do not exclude.
var nativeTLDs = map[string]TLDConfig{
	"ghost": {Enabled: true, MinLength: 3, MaxLength: 63},
	"gcc":   {Enabled: true, MinLength: 3, MaxLength: 63},
	"warp":  {Enabled: true, MinLength: 3, MaxLength: 63},
	"arc":   {Enabled: true, MinLength: 3, MaxLength: 63},
	"gcp":   {Enabled: true, MinLength: 3, MaxLength: 63},
	"sig":   {Enabled: true, MinLength: 3, MaxLength: 63},
	"gpk":   {Enabled: true, MinLength: 3, MaxLength: 63},
	"key":   {Enabled: true, MinLength: 3, MaxLength: 63},
	"pin":   {Enabled: true, MinLength: 3, MaxLength: 63},
	"bc":    {Enabled: true, MinLength: 3, MaxLength: 63},
	"zns":   {Enabled: true, MinLength: 3, MaxLength: 63},
	"ops":   {Enabled: true, MinLength: 3, MaxLength: 63},
	"sid":   {Enabled: true, MinLength: 3, MaxLength: 63},
	"dvm":   {Enabled: true, MinLength: 3, MaxLength: 63},
	"tmp":   {Enabled: true, MinLength: 3, MaxLength: 63},
	"dbg":   {Enabled: true, MinLength: 3, MaxLength: 63},
	"lib":   {Enabled: true, MinLength: 3, MaxLength: 63},
	"txo":   {Enabled: true, MinLength: 3, MaxLength: 63},
}

// IsNativeTLD reports whether suffix is served by the in-process registry.
func IsNativeTLD(suffix string) bool {
	cfg, ok := nativeTLDs[suffix]
	return ok && cfg.Enabled
}

// SuffixOf returns the TLD of a dotted domain name (the text after the
// final '.'), or "" if name has no dot.
func SuffixOf(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return ""
}
