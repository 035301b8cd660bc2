// Package farm aggregates turbine outputs into wind farm and cluster outputs.
package farm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/windfeed/pkg/curve"
	"github.com/chrissnell/windfeed/pkg/turbine"
)

// Member is one turbine type of a farm and the number of installed units
type Member struct {
	Turbine *turbine.Spec
	Count   int
}

// Efficiency reduces farm output for wake losses. Exactly one of Constant and Curve is set.
type Efficiency struct {
	// Constant is a fraction in (0, 1]
	Constant float64

	// Curve maps wind speed in m/s to a fraction
	Curve *curve.Curve
}

// At returns the efficiency at wind speed v
func (e *Efficiency) At(v float64) float64 {
	if e.Curve != nil {
		return e.Curve.At(v)
	}
	return e.Constant
}

func (e *Efficiency) validate() error {
	switch {
	case e.Curve != nil && e.Constant != 0:
		return &turbine.ConfigurationError{Field: "efficiency", Reason: "set either a constant efficiency or an efficiency curve, not both"}
	case e.Curve != nil:
		if e.Curve.MaxValue() > 1 {
			return &curve.InvalidCurveError{Index: -1, Reason: fmt.Sprintf("efficiency curve exceeds 1 (max %g)", e.Curve.MaxValue())}
		}
	case !(e.Constant > 0 && e.Constant <= 1):
		return &turbine.ConfigurationError{Field: "efficiency", Reason: fmt.Sprintf("constant efficiency %g is outside (0, 1]", e.Constant)}
	}
	return nil
}

// Farm is an immutable set of turbines that share a site
type Farm struct {
	name       string
	members    []Member
	efficiency *Efficiency
}

// NewFarm validates and builds a Farm. efficiency may be nil.
func NewFarm(name string, members []Member, efficiency *Efficiency) (*Farm, error) {
	if len(members) == 0 {
		return nil, &turbine.ConfigurationError{Field: "fleet", Reason: fmt.Sprintf("farm %q has no turbines", name)}
	}
	for i, m := range members {
		if m.Turbine == nil {
			return nil, &turbine.ConfigurationError{Field: "fleet", Reason: fmt.Sprintf("farm %q member %d has no turbine", name, i)}
		}
		if m.Count < 1 {
			return nil, &turbine.ConfigurationError{Field: "fleet", Reason: fmt.Sprintf("farm %q member %q has count %d", name, m.Turbine.Name(), m.Count)}
		}
	}
	if efficiency != nil {
		if err := efficiency.validate(); err != nil {
			return nil, fmt.Errorf("farm %q: %w", name, err)
		}
	}

	return &Farm{
		name:       name,
		members:    append([]Member(nil), members...),
		efficiency: efficiency,
	}, nil
}

// Name returns the farm name
func (f *Farm) Name() string { return f.name }

// Members returns a copy of the fleet
func (f *Farm) Members() []Member { return append([]Member(nil), f.members...) }

// Efficiency returns the wake loss efficiency, nil when none applies
func (f *Farm) Efficiency() *Efficiency { return f.efficiency }

// InstalledPower returns the sum of count times nominal power in W
func (f *Farm) InstalledPower() float64 {
	total := 0.0
	for _, m := range f.members {
		total += float64(m.Count) * m.Turbine.NominalPower()
	}
	return total
}

// nominalKnown reports whether every member turbine has a nominal power
func (f *Farm) nominalKnown() bool {
	for _, m := range f.members {
		if m.Turbine.NominalPower() == 0 {
			return false
		}
	}
	return true
}

// weights returns the installed power of each member, or the counts when any nominal
// power is unknown
func (f *Farm) weights() []float64 {
	byPower := f.nominalKnown()
	w := make([]float64, len(f.members))
	for i, m := range f.members {
		w[i] = float64(m.Count)
		if byPower {
			w[i] *= m.Turbine.NominalPower()
		}
	}
	return w
}

// MeanHubHeight returns the installed power weighted logarithmic mean of the hub heights,
// exp(Σ ln(h)·P / Σ P)
func (f *Farm) MeanHubHeight() float64 {
	logs := make([]float64, len(f.members))
	for i, m := range f.members {
		logs[i] = math.Log(m.Turbine.HubHeight())
	}
	return math.Exp(stat.Mean(logs, f.weights()))
}

// Cluster is an immutable set of farms whose outputs are summed
type Cluster struct {
	name  string
	farms []*Farm
}

// NewCluster validates and builds a Cluster
func NewCluster(name string, farms []*Farm) (*Cluster, error) {
	if len(farms) == 0 {
		return nil, &turbine.ConfigurationError{Field: "farms", Reason: fmt.Sprintf("cluster %q has no farms", name)}
	}
	for i, f := range farms {
		if f == nil {
			return nil, &turbine.ConfigurationError{Field: "farms", Reason: fmt.Sprintf("cluster %q farm %d is missing", name, i)}
		}
	}
	return &Cluster{name: name, farms: append([]*Farm(nil), farms...)}, nil
}

// Name returns the cluster name
func (c *Cluster) Name() string { return c.name }

// Farms returns a copy of the farm list
func (c *Cluster) Farms() []*Farm { return append([]*Farm(nil), c.farms...) }

// InstalledPower returns the installed power of all farms in W
func (c *Cluster) InstalledPower() float64 {
	total := 0.0
	for _, f := range c.farms {
		total += f.InstalledPower()
	}
	return total
}

// MeanHubHeight returns the installed power weighted logarithmic mean of the farms'
// mean hub heights
func (c *Cluster) MeanHubHeight() float64 {
	logs := make([]float64, len(c.farms))
	weights := make([]float64, len(c.farms))
	for i, f := range c.farms {
		logs[i] = math.Log(f.MeanHubHeight())
		weights[i] = f.InstalledPower()
	}
	if c.InstalledPower() == 0 {
		weights = nil
	}
	return math.Exp(stat.Mean(logs, weights))
}
