package services_test

import (
	"os"
	"testing"

	"dtbase_go_backend/internal/database"
	"dtbase_go_backend/internal/models"
	"dtbase_go_backend/internal/services"
	"dtbase_go_backend/internal/utils/broker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) (*services.ModelService, services.ModelStoreDB, *broker.Broker) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)

	store := services.NewModelStoreDB(db)
	eventBroker := broker.NewBroker()
	model, err := services.NewModelService(store, eventBroker, zerolog.New(os.Stderr))
	require.NoError(t, err)
	return model, store, eventBroker
}

func pointEstimate(v float64) models.Estimate {
	return models.Estimate{Type: models.EstimateUniform, A: v, B: v}
}

func testLink(linkID, parent, child string) models.Link {
	return models.Link{
		LinkID:   linkID,
		ParentID: parent,
		ChildID:  child,
		M1:       pointEstimate(0.8),
		M2:       pointEstimate(0.5),
		M3:       pointEstimate(0.9),
	}
}

func TestAddAndGetNode(t *testing.T) {
	model, _, _ := newTestModel(t)

	require.NoError(t, model.AddNode(models.Node{NodeID: "org", Name: "Organizational factors"}))

	node, err := model.GetNode("org")
	require.NoError(t, err)
	assert.Equal(t, "Organizational factors", node.Name)

	// Duplicate ids are rejected.
	err = model.AddNode(models.Node{NodeID: "org", Name: "again"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// Ids longer than 5 characters are rejected.
	err = model.AddNode(models.Node{NodeID: "toolong"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 to 5 characters")
}

func TestGetMissingNode(t *testing.T) {
	model, _, _ := newTestModel(t)
	_, err := model.GetNode("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestAddLinkValidation(t *testing.T) {
	model, _, _ := newTestModel(t)
	require.NoError(t, model.AddNode(models.Node{NodeID: "a"}))
	require.NoError(t, model.AddNode(models.Node{NodeID: "b"}))

	// Both endpoints must exist.
	err := model.AddLink(testLink("l1", "a", "ghost"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	// Estimates must stay inside the unit interval.
	bad := testLink("l1", "a", "b")
	bad.M2 = models.Estimate{Type: models.EstimateUniform, A: 0.2, B: 1.4}
	err = model.AddLink(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m2")

	// A cited reference must exist.
	withRef := testLink("l1", "a", "b")
	withRef.RefID = "nope"
	err = model.AddLink(withRef)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference [nope]")

	require.NoError(t, model.AddLink(testLink("l1", "a", "b")))
	err = model.AddLink(testLink("l1", "a", "b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestParallelLinksGetDistinctEdgeKeys(t *testing.T) {
	model, _, _ := newTestModel(t)
	require.NoError(t, model.AddNode(models.Node{NodeID: "a"}))
	require.NoError(t, model.AddNode(models.Node{NodeID: "b"}))

	require.NoError(t, model.AddLink(testLink("l1", "a", "b")))
	require.NoError(t, model.AddLink(testLink("l2", "a", "b")))

	l1, err := model.GetLink("l1")
	require.NoError(t, err)
	l2, err := model.GetLink("l2")
	require.NoError(t, err)
	assert.Equal(t, 0, l1.EdgeKey)
	assert.Equal(t, 1, l2.EdgeKey)
}

func TestRemoveNodeCascadesLinks(t *testing.T) {
	model, _, _ := newTestModel(t)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, model.AddNode(models.Node{NodeID: id}))
	}
	require.NoError(t, model.AddLink(testLink("l1", "a", "b")))
	require.NoError(t, model.AddLink(testLink("l2", "b", "c")))

	require.NoError(t, model.RemoveNode("b"))

	links, err := model.Links()
	require.NoError(t, err)
	assert.Empty(t, links)
	assert.Empty(t, model.Graph().Predecessors("c"))
}

func TestRemoveReferenceCascadesLinks(t *testing.T) {
	model, _, _ := newTestModel(t)
	require.NoError(t, model.AddNode(models.Node{NodeID: "a"}))
	require.NoError(t, model.AddNode(models.Node{NodeID: "b"}))
	require.NoError(t, model.AddReference(models.Reference{RefID: "reason1997", Title: "Organizational factors in major accident causation"}))

	cited := testLink("l1", "a", "b")
	cited.RefID = "reason1997"
	require.NoError(t, model.AddLink(cited))
	require.NoError(t, model.AddLink(testLink("l2", "a", "b")))

	require.NoError(t, model.RemoveReference("reason1997"))

	links, err := model.Links()
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "l2", links[0].LinkID)

	_, err = model.GetReference("reason1997")
	require.Error(t, err)
}

func TestReAddNodeAfterRemove(t *testing.T) {
	model, _, _ := newTestModel(t)

	require.NoError(t, model.AddNode(models.Node{NodeID: "org", Name: "first"}))
	require.NoError(t, model.RemoveNode("org"))

	// A removed id is free again; the deleted row must not keep holding
	// the unique index.
	require.NoError(t, model.AddNode(models.Node{NodeID: "org", Name: "second"}))

	node, err := model.GetNode("org")
	require.NoError(t, err)
	assert.Equal(t, "second", node.Name)
}

func TestAddLinkAfterRemoveReusesEdgeKey(t *testing.T) {
	model, _, _ := newTestModel(t)
	require.NoError(t, model.AddNode(models.Node{NodeID: "a"}))
	require.NoError(t, model.AddNode(models.Node{NodeID: "b"}))

	require.NoError(t, model.AddLink(testLink("l1", "a", "b")))
	require.NoError(t, model.RemoveLink("l1"))

	// The freed edge key is handed out again; the insert must succeed.
	require.NoError(t, model.AddLink(testLink("l2", "a", "b")))
	l2, err := model.GetLink("l2")
	require.NoError(t, err)
	assert.Equal(t, 0, l2.EdgeKey)

	// Same for the link id itself.
	require.NoError(t, model.AddLink(testLink("l1", "a", "b")))
}

func TestReAddReferenceAfterRemove(t *testing.T) {
	model, _, _ := newTestModel(t)

	require.NoError(t, model.AddReference(models.Reference{RefID: "r1", Title: "first"}))
	require.NoError(t, model.RemoveReference("r1"))
	require.NoError(t, model.AddReference(models.Reference{RefID: "r1", Title: "second"}))

	ref, err := model.GetReference("r1")
	require.NoError(t, err)
	assert.Equal(t, "second", ref.Title)
}

func TestReAddNodeAfterCascadingRemove(t *testing.T) {
	model, _, _ := newTestModel(t)
	require.NoError(t, model.AddNode(models.Node{NodeID: "a"}))
	require.NoError(t, model.AddNode(models.Node{NodeID: "b"}))
	require.NoError(t, model.AddLink(testLink("l1", "a", "b")))

	require.NoError(t, model.RemoveNode("b"))
	require.NoError(t, model.AddNode(models.Node{NodeID: "b"}))

	// The cascade freed the edge slot too.
	require.NoError(t, model.AddLink(testLink("l1", "a", "b")))
}

func TestGraphRebuildsFromStore(t *testing.T) {
	model, store, eventBroker := newTestModel(t)
	require.NoError(t, model.AddNode(models.Node{NodeID: "a"}))
	require.NoError(t, model.AddNode(models.Node{NodeID: "b"}))
	require.NoError(t, model.AddLink(testLink("l1", "a", "b")))

	// A fresh service over the same store sees the same graph.
	reloaded, err := services.NewModelService(store, eventBroker, zerolog.New(os.Stderr))
	require.NoError(t, err)
	assert.True(t, reloaded.Graph().HasNode("a"))
	assert.Equal(t, []string{"a"}, reloaded.Graph().Predecessors("b"))
}

func TestMutationsPublishEvents(t *testing.T) {
	model, _, eventBroker := newTestModel(t)
	events := eventBroker.Subscribe()
	defer eventBroker.Unsubscribe(events)

	require.NoError(t, model.AddNode(models.Node{NodeID: "a"}))
	evt := <-events
	assert.Equal(t, broker.Event{Action: "added", Entity: "node", ID: "a"}, evt)

	require.NoError(t, model.RemoveNode("a"))
	evt = <-events
	assert.Equal(t, broker.Event{Action: "removed", Entity: "node", ID: "a"}, evt)
}

func TestClear(t *testing.T) {
	model, _, _ := newTestModel(t)
	require.NoError(t, model.AddNode(models.Node{NodeID: "a"}))
	require.NoError(t, model.AddReference(models.Reference{RefID: "r1", Title: "t"}))

	require.NoError(t, model.Clear())

	nodes, err := model.Nodes()
	require.NoError(t, err)
	assert.Empty(t, nodes)
	refs, err := model.References()
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Empty(t, model.Graph().Nodes())
}
