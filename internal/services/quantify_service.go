package services

import (
	"fmt"
	"math"
	"sort"

	"dtbase_go_backend/internal/graph"
	"dtbase_go_backend/internal/models"

	"gonum.org/v1/gonum/stat/distuv"
)

// AggregationMethod selects how parallel evidence for the same parent is
// combined into one conditional probability.
type AggregationMethod string

const (
	AggregationArithmetic AggregationMethod = "ARITHMETIC"
	AggregationGeometric  AggregationMethod = "GEOMETRIC"
)

// LinkWeight is the normalized weight of one link into the target node.
type LinkWeight struct {
	LinkID   string  `json:"link_id"`
	ParentID string  `json:"parent_id"`
	ChildID  string  `json:"child_id"`
	EdgeKey  int     `json:"edge_key"`
	Weight   float64 `json:"weight"`
}

// CPTRow is the noisy-OR probability of the target given that exactly
// the listed parents are present.
type CPTRow struct {
	Parents     []string `json:"parents"`
	Probability float64  `json:"probability"`
}

// QuantifyResult is the full output of a quantification run.
type QuantifyResult struct {
	TargetNode               string             `json:"target_node"`
	Method                   AggregationMethod  `json:"method"`
	Weights                  []LinkWeight       `json:"weights"`
	ConditionalProbabilities map[string]float64 `json:"conditional_probabilities"`
	CPT                      []CPTRow           `json:"cpt"`
}

// QuantifyService derives the conditional probability table of a target
// node from the analyst estimates on its incoming links. Link weights
// are normalized per parent by mean(m1)·mean(m3); per-parent conditional
// probabilities aggregate mean(m2) arithmetically or geometrically; the
// CPT combines parents with a noisy-OR.
type QuantifyService struct {
	model      *ModelService
	sampleSize int
}

func NewQuantifyService(model *ModelService, sampleSize int) *QuantifyService {
	return &QuantifyService{model: model, sampleSize: sampleSize}
}

func (s *QuantifyService) Calculate(targetNode string, method AggregationMethod) (*QuantifyResult, error) {
	if method != AggregationArithmetic && method != AggregationGeometric {
		return nil, fmt.Errorf("unknown aggregation method [%s]", method)
	}
	// Collect the incoming links under the model read lock; mutations
	// write the same graph maps concurrently.
	var parents []string
	incoming := make(map[string][]*models.Link)
	err := s.model.ReadGraph(func(g *graph.MultiDiGraph) error {
		if !g.HasNode(targetNode) {
			return fmt.Errorf("node [%s] does not exist in the model", targetNode)
		}
		parents = g.Predecessors(targetNode)
		if len(parents) == 0 {
			return fmt.Errorf("node [%s] has no incoming links to quantify", targetNode)
		}
		for _, parent := range parents {
			for _, edge := range g.EdgeData(parent, targetNode) {
				link, err := s.model.GetLink(edge.LinkID)
				if err != nil {
					return err
				}
				incoming[parent] = append(incoming[parent], link)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(parents)

	// Sample the estimate means outside the lock.
	type quantLink struct {
		link   *models.Link
		m1, m2 float64
		m3     float64
	}
	byParent := make(map[string][]quantLink)
	for parent, links := range incoming {
		for _, link := range links {
			byParent[parent] = append(byParent[parent], quantLink{
				link: link,
				m1:   s.sampleMean(link.M1),
				m2:   s.sampleMean(link.M2),
				m3:   s.sampleMean(link.M3),
			})
		}
	}

	// Normalize link weights per parent: w = m1·m3 / Σ m1·m3.
	result := &QuantifyResult{
		TargetNode:               targetNode,
		Method:                   method,
		ConditionalProbabilities: make(map[string]float64),
	}
	weights := make(map[string]float64)
	for _, parent := range parents {
		var z float64
		for _, ql := range byParent[parent] {
			z += ql.m1 * ql.m3
		}
		if z == 0 {
			return nil, fmt.Errorf("links from [%s] carry zero total credibility", parent)
		}
		for _, ql := range byParent[parent] {
			w := ql.m1 * ql.m3 / z
			weights[ql.link.LinkID] = w
			result.Weights = append(result.Weights, LinkWeight{
				LinkID:   ql.link.LinkID,
				ParentID: ql.link.ParentID,
				ChildID:  ql.link.ChildID,
				EdgeKey:  ql.link.EdgeKey,
				Weight:   w,
			})
		}
	}
	sort.Slice(result.Weights, func(i, j int) bool { return result.Weights[i].LinkID < result.Weights[j].LinkID })

	// Aggregate per-parent conditional probability.
	for _, parent := range parents {
		var cp float64
		if method == AggregationGeometric {
			cp = 1.0
		}
		for _, ql := range byParent[parent] {
			w := weights[ql.link.LinkID]
			switch method {
			case AggregationArithmetic:
				cp += w * ql.m2
			case AggregationGeometric:
				cp *= math.Pow(ql.m2, w)
			}
		}
		result.ConditionalProbabilities[parent] = cp
	}

	// Noisy-OR over every non-empty parent combination.
	for size := 1; size <= len(parents); size++ {
		combinations(parents, size, func(combo []string) {
			row := CPTRow{Parents: append([]string(nil), combo...)}
			prod := 1.0
			for _, parent := range combo {
				prod *= 1 - result.ConditionalProbabilities[parent]
			}
			row.Probability = 1 - prod
			result.CPT = append(result.CPT, row)
		})
	}
	return result, nil
}

// sampleMean draws a Monte-Carlo sample from the estimate's distribution
// and returns its mean. NORMAL treats (a, b) as a 90% confidence
// interval.
func (s *QuantifyService) sampleMean(e models.Estimate) float64 {
	var dist interface{ Rand() float64 }
	switch e.Type {
	case models.EstimateNormal:
		mid := (e.A + e.B) / 2
		z := distuv.UnitNormal.Quantile(0.95)
		dist = distuv.Normal{Mu: mid, Sigma: (e.B - mid) / z}
	default:
		dist = distuv.Uniform{Min: e.A, Max: e.B}
	}

	var sum float64
	for i := 0; i < s.sampleSize; i++ {
		sum += dist.Rand()
	}
	return sum / float64(s.sampleSize)
}

// combinations visits every size-k subset of ids, in order.
func combinations(ids []string, k int, visit func([]string)) {
	combo := make([]string, 0, k)
	var recurse func(start int)
	recurse = func(start int) {
		if len(combo) == k {
			visit(combo)
			return
		}
		for i := start; i <= len(ids)-(k-len(combo)); i++ {
			combo = append(combo, ids[i])
			recurse(i + 1)
			combo = combo[:len(combo)-1]
		}
	}
	recurse(0)
}
