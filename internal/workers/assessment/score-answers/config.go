package scoreanswers

// Answer weights. The maximum per question is WeightFull.
const (
	WeightFull    = 10
	WeightPartial = 6
	WeightNone    = 0
)

// band is one row of the maturity table; lower bounds are inclusive.
type band struct {
	lower       int
	upper       int
	tier        string
	description string
}

// maturityBands is the single banding table used for both the Stage 1 preview and reports.
var maturityBands = []band{
	{0, 24, "Initial", "Practices are ad hoc and largely undocumented; compliance depends on individual effort."},
	{25, 49, "Managed", "Core policies exist but coverage is partial and evidence of implementation is inconsistent."},
	{50, 74, "Established", "Policies are documented and implemented across most areas with regular monitoring."},
	{75, 100, "Optimised", "Practices are embedded, measured and continuously improved across the organization."},
}
