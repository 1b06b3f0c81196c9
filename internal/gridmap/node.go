package gridmap

import (
	"fmt"
	"math"
)

// Node is the capability set the grid requires of a stored cell.
// Values are log-odds of occupancy.
type Node interface {
	Value() float32
	SetValue(v float32)
	AddValue(delta float32)
	// ToMaxLikelihood snaps the value to the nearest clamping bound.
	ToMaxLikelihood()
	Clone() Node
}

// NodeFactory creates an empty node bound to the grid's sensor model.
type NodeFactory func(m *SensorModel) Node

// Default sensor model parameters, as probabilities.
const (
	DefaultProbHit          = 0.7
	DefaultProbMiss         = 0.4
	DefaultClampingThresMin = 0.1192
	DefaultClampingThresMax = 0.971
	DefaultOccupancyThres   = 0.5
)

// SensorModel holds the log-odds increments and bounds used for fusion.
type SensorModel struct {
	HitLogOdds     float32 `json:"hit_log_odds"`
	MissLogOdds    float32 `json:"miss_log_odds"`
	ClampMin       float32 `json:"clamp_min_log_odds"`
	ClampMax       float32 `json:"clamp_max_log_odds"`
	OccupancyThres float32 `json:"occupancy_thres_log_odds"`
}

// NewSensorModel converts probabilities into a log-odds sensor model.
func NewSensorModel(probHit, probMiss, clampMin, clampMax, occupancyThres float64) (*SensorModel, error) {
	for name, p := range map[string]float64{
		"prob_hit":           probHit,
		"prob_miss":          probMiss,
		"clamping_thres_min": clampMin,
		"clamping_thres_max": clampMax,
		"occupancy_thres":    occupancyThres,
	} {
		if !(p > 0 && p < 1) {
			return nil, fmt.Errorf("%s must be in (0, 1), got %v", name, p)
		}
	}
	if clampMin >= clampMax {
		return nil, fmt.Errorf("clamping_thres_min (%v) must be below clamping_thres_max (%v)", clampMin, clampMax)
	}
	return &SensorModel{
		HitLogOdds:     Logodds(probHit),
		MissLogOdds:    Logodds(probMiss),
		ClampMin:       Logodds(clampMin),
		ClampMax:       Logodds(clampMax),
		OccupancyThres: Logodds(occupancyThres),
	}, nil
}

// DefaultSensorModel returns the model built from the Default* constants.
func DefaultSensorModel() *SensorModel {
	m, err := NewSensorModel(DefaultProbHit, DefaultProbMiss,
		DefaultClampingThresMin, DefaultClampingThresMax, DefaultOccupancyThres)
	if err != nil {
		panic(err)
	}
	return m
}

// Logodds converts a probability into log-odds.
func Logodds(p float64) float32 {
	return float32(math.Log(p / (1 - p)))
}

// Probability converts log-odds back into a probability.
func Probability(logodds float64) float64 {
	return 1 - 1/(1+math.Exp(logodds))
}

// IsOccupied reports whether a log-odds value is at or above the
// occupancy threshold.
func (m *SensorModel) IsOccupied(v float32) bool {
	return v >= m.OccupancyThres
}

// Clamp limits v to [ClampMin, ClampMax].
func (m *SensorModel) Clamp(v float32) float32 {
	if v < m.ClampMin {
		return m.ClampMin
	}
	if v > m.ClampMax {
		return m.ClampMax
	}
	return v
}

// NewOccupancyNode is the default NodeFactory.
func NewOccupancyNode(m *SensorModel) Node {
	return &OccupancyNode{model: m}
}

// OccupancyNode is the default cell payload: a clamped log-odds value.
type OccupancyNode struct {
	logOdds float32
	model   *SensorModel
}

func (n *OccupancyNode) Value() float32 { return n.logOdds }

// SetValue stores v clamped to the sensor model bounds.
func (n *OccupancyNode) SetValue(v float32) { n.logOdds = n.model.Clamp(v) }

// AddValue adds delta and clamps the result.
func (n *OccupancyNode) AddValue(delta float32) { n.logOdds = n.model.Clamp(n.logOdds + delta) }

func (n *OccupancyNode) ToMaxLikelihood() {
	if n.model.IsOccupied(n.logOdds) {
		n.logOdds = n.model.ClampMax
	} else {
		n.logOdds = n.model.ClampMin
	}
}

func (n *OccupancyNode) Clone() Node {
	c := *n
	return &c
}

// Occupancy returns the node's occupancy probability.
func (n *OccupancyNode) Occupancy() float64 {
	return Probability(float64(n.logOdds))
}
