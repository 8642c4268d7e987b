package services

import (
	"fmt"
	"sync"

	"dtbase_go_backend/internal/graph"
	"dtbase_go_backend/internal/models"
	"dtbase_go_backend/internal/utils/broker"

	"github.com/rs/zerolog"
)

// ModelService owns the causal model: every mutation goes through the
// store and the in-memory graph together, and is announced on the event
// broker.
type ModelService struct {
	store  ModelStoreDB
	graph  *graph.MultiDiGraph
	broker *broker.Broker
	logger zerolog.Logger
	mu     sync.RWMutex
}

func NewModelService(store ModelStoreDB, eventBroker *broker.Broker, logger zerolog.Logger) (*ModelService, error) {
	s := &ModelService{
		store:  store,
		graph:  graph.New(),
		broker: eventBroker,
		logger: logger,
	}
	if err := s.rebuildGraph(); err != nil {
		return nil, fmt.Errorf("failed to rebuild graph from store: %w", err)
	}
	return s, nil
}

// rebuildGraph reloads the in-memory multigraph from the store.
func (s *ModelService) rebuildGraph() error {
	s.graph.Clear()
	nodes, err := s.store.ListNodes()
	if err != nil {
		return err
	}
	for _, node := range nodes {
		s.graph.AddNode(node.NodeID)
	}
	links, err := s.store.ListLinks()
	if err != nil {
		return err
	}
	for _, link := range links {
		if err := s.graph.AddEdge(link.ParentID, link.ChildID, link.EdgeKey, link.LinkID); err != nil {
			return err
		}
	}
	return nil
}

func (s *ModelService) AddNode(node models.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node.NodeID == "" || len(node.NodeID) > 5 {
		return fmt.Errorf("node id must be 1 to 5 characters")
	}
	existing, err := s.store.GetNode(node.NodeID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("[%s] already exists in the model", node.NodeID)
	}
	if err := s.store.SaveNode(&node); err != nil {
		return err
	}
	s.graph.AddNode(node.NodeID)
	s.broker.Publish(broker.Event{Action: "added", Entity: "node", ID: node.NodeID})
	return nil
}

func (s *ModelService) GetNode(nodeID string) (*models.Node, error) {
	node, err := s.store.GetNode(nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("node [%s] does not exist in the model", nodeID)
	}
	return node, nil
}

func (s *ModelService) RemoveNode(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.store.GetNode(nodeID)
	if err != nil {
		return err
	}
	if node == nil {
		return fmt.Errorf("node [%s] does not exist in the model", nodeID)
	}
	if err := s.store.DeleteNode(nodeID); err != nil {
		return err
	}
	s.graph.RemoveNode(nodeID)
	s.broker.Publish(broker.Event{Action: "removed", Entity: "node", ID: nodeID})
	return nil
}

// AddLink wires a causal edge between two existing nodes. The edge key
// is assigned here so parallel links stay distinguishable.
func (s *ModelService) AddLink(link models.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if link.LinkID == "" {
		return fmt.Errorf("link id must not be empty")
	}
	for name, est := range map[string]models.Estimate{"m1": link.M1, "m2": link.M2, "m3": link.M3} {
		if !est.Valid() {
			return fmt.Errorf("%s must be a UNIFORM or NORMAL estimate with 0 <= a <= b <= 1", name)
		}
	}
	existing, err := s.store.GetLink(link.LinkID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("[%s] already exists in the model", link.LinkID)
	}
	if !s.graph.HasNode(link.ParentID) {
		return fmt.Errorf("node [%s] does not exist in the model", link.ParentID)
	}
	if !s.graph.HasNode(link.ChildID) {
		return fmt.Errorf("node [%s] does not exist in the model", link.ChildID)
	}
	if link.RefID != "" {
		ref, err := s.store.GetReference(link.RefID)
		if err != nil {
			return err
		}
		if ref == nil {
			return fmt.Errorf("reference [%s] does not exist in the model", link.RefID)
		}
	}

	link.EdgeKey = s.graph.NewEdgeKey(link.ParentID, link.ChildID)
	if err := s.graph.AddEdge(link.ParentID, link.ChildID, link.EdgeKey, link.LinkID); err != nil {
		return err
	}
	if err := s.store.SaveLink(&link); err != nil {
		s.graph.RemoveEdge(link.ParentID, link.ChildID, link.EdgeKey)
		return err
	}
	s.broker.Publish(broker.Event{Action: "added", Entity: "link", ID: link.LinkID})
	return nil
}

func (s *ModelService) GetLink(linkID string) (*models.Link, error) {
	link, err := s.store.GetLink(linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, fmt.Errorf("link [%s] does not exist in the model", linkID)
	}
	return link, nil
}

func (s *ModelService) RemoveLink(linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.store.GetLink(linkID)
	if err != nil {
		return err
	}
	if link == nil {
		return fmt.Errorf("link [%s] does not exist in the model", linkID)
	}
	if err := s.store.DeleteLink(linkID); err != nil {
		return err
	}
	s.graph.RemoveEdge(link.ParentID, link.ChildID, link.EdgeKey)
	s.broker.Publish(broker.Event{Action: "removed", Entity: "link", ID: linkID})
	return nil
}

func (s *ModelService) AddReference(ref models.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkNewReferenceLocked(ref, nil); err != nil {
		return err
	}
	if err := s.store.SaveReference(&ref); err != nil {
		return err
	}
	s.broker.Publish(broker.Event{Action: "added", Entity: "reference", ID: ref.RefID})
	return nil
}

// AddReferences stores a batch of references atomically: every id is
// validated up front and the batch persists in one transaction, so a
// failed import leaves nothing behind.
func (s *ModelService) AddReferences(refs []models.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if err := s.checkNewReferenceLocked(ref, seen); err != nil {
			return err
		}
		seen[ref.RefID] = struct{}{}
	}
	if err := s.store.SaveReferences(refs); err != nil {
		return err
	}
	for _, ref := range refs {
		s.broker.Publish(broker.Event{Action: "added", Entity: "reference", ID: ref.RefID})
	}
	return nil
}

func (s *ModelService) checkNewReferenceLocked(ref models.Reference, seen map[string]struct{}) error {
	if ref.RefID == "" {
		return fmt.Errorf("reference id must not be empty")
	}
	if ref.Title == "" {
		return fmt.Errorf("a valid title must be provided")
	}
	if _, dup := seen[ref.RefID]; dup {
		return fmt.Errorf("duplicate reference id [%s] in batch", ref.RefID)
	}
	existing, err := s.store.GetReference(ref.RefID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("[%s] already exists in the model", ref.RefID)
	}
	return nil
}

func (s *ModelService) GetReference(refID string) (*models.Reference, error) {
	ref, err := s.store.GetReference(refID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, fmt.Errorf("reference [%s] does not exist in the model", refID)
	}
	return ref, nil
}

// RemoveReference drops the reference and the links citing it, since a
// link without its supporting evidence is meaningless.
func (s *ModelService) RemoveReference(refID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.store.GetReference(refID)
	if err != nil {
		return err
	}
	if ref == nil {
		return fmt.Errorf("reference [%s] does not exist in the model", refID)
	}
	links, err := s.store.ListLinks()
	if err != nil {
		return err
	}
	if err := s.store.DeleteReference(refID); err != nil {
		return err
	}
	for _, link := range links {
		if link.RefID == refID {
			s.graph.RemoveEdge(link.ParentID, link.ChildID, link.EdgeKey)
		}
	}
	s.broker.Publish(broker.Event{Action: "removed", Entity: "reference", ID: refID})
	return nil
}

func (s *ModelService) Nodes() ([]models.Node, error) {
	return s.store.ListNodes()
}

func (s *ModelService) Links() ([]models.Link, error) {
	return s.store.ListLinks()
}

func (s *ModelService) References() ([]models.Reference, error) {
	return s.store.ListReferences()
}

// Graph exposes the in-memory multigraph for traversal. Callers must not
// mutate it, and concurrent readers must hold the read lock via
// ReadGraph.
func (s *ModelService) Graph() *graph.MultiDiGraph {
	return s.graph
}

// ReadGraph runs fn with the model read-locked, so graph traversal
// cannot race a concurrent mutation.
func (s *ModelService) ReadGraph(fn func(g *graph.MultiDiGraph) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.graph)
}

func (s *ModelService) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		return err
	}
	s.graph.Clear()
	s.logger.Info().Msg("model cleared")
	return nil
}
