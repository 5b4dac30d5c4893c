package gencontext

// Context carries everything generation needs beyond the RNG: the active
// locale resolution, the parent-pool handle for derive.fk/derive.parent_value,
// the coverage/warning accumulator, and the strict flag.
type Context struct {
	Seed             int64
	GlobalLocale     string
	Strict           bool
	ConstraintPolicy ConstraintPolicy

	Pools    *ParentPools
	Coverage *Coverage

	master *RNG
}

// ConstraintPolicy governs how CHECK expressions outside the evaluable
// grammar are handled.
type ConstraintPolicy string

const (
	PolicyEnforce ConstraintPolicy = "enforce"
	PolicyWarn    ConstraintPolicy = "warn"
	PolicyIgnore  ConstraintPolicy = "ignore"
)

func New(seed int64, globalLocale string, strict bool, policy ConstraintPolicy) *Context {
	if globalLocale == "" {
		globalLocale = "en_US"
	}
	if policy == "" {
		policy = PolicyEnforce
	}
	return &Context{
		Seed:             seed,
		GlobalLocale:     globalLocale,
		Strict:           strict,
		ConstraintPolicy: policy,
		Pools:            NewParentPools(),
		Coverage:         NewCoverage(),
		master:           newRNG(seed),
	}
}

// TableRNG derives the deterministic per-table RNG stream.
func (c *Context) TableRNG(schema, table string) *RNG {
	return newRNG(deriveSeed(c.Seed, schema+"."+table))
}

// ResolveLocale returns the rule-level locale if set, else the plan's
// global locale.
func (c *Context) ResolveLocale(ruleLocale string) string {
	if ruleLocale != "" {
		return ruleLocale
	}
	return c.GlobalLocale
}
