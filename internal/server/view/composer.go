package view

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/server/render"
	"github.com/dmitrijs2005/famtree/internal/server/services"
	"github.com/dmitrijs2005/famtree/internal/stream"
)

const LoadingLabel = "Loading..."

// Snapshot is the complete state shown to one client.
type Snapshot struct {
	Identity           *models.Identity     `json:"identity"`
	ActiveTreeUID      string               `json:"activeTreeUid"`
	TreeLabel          string               `json:"treeLabel"`
	Nodes              []render.Node        `json:"nodes"`
	Edges              []render.Edge        `json:"edges"`
	PendingInvitations []*models.Invitation `json:"pendingInvitations"`
	AccessibleTrees    []*models.SharedTree `json:"accessibleTrees"`
	CanEdit            bool                 `json:"canEdit"`
}

// Composer joins the live sources of the core into Snapshots.
type Composer struct {
	loop    *stream.Loop
	access  *services.AccessService
	invites *services.InvitationService
	graph   *services.GraphService
}

func NewComposer(loop *stream.Loop, access *services.AccessService, invites *services.InvitationService, graph *services.GraphService) *Composer {
	return &Composer{loop: loop, access: access, invites: invites, graph: graph}
}

// graphPart is the graph of one tree, tagged with that tree.
type graphPart struct {
	tree   string
	people []*models.Person
	rels   []*models.Relationship
}

// Snapshots emits a new Snapshot whenever anything visible changes. Every
// tree-scoped subscription hangs off the current identity and is disposed
// before those of the next identity are made.
func (c *Composer) Snapshots(identities stream.Source[*models.Identity]) stream.Source[Snapshot] {
	composed := stream.SwitchMap(identities, func(id *models.Identity) stream.Source[Snapshot] {
		if id == nil {
			return stream.Of(Snapshot{TreeLabel: LoadingLabel})
		}
		return c.compose(id)
	})
	return stream.DistinctFunc(composed, func(a, b Snapshot) bool {
		return reflect.DeepEqual(a, b)
	})
}

// compose derives the active tree once and loads the graph from it. A graph
// still belonging to the previous tree is never paired with the new one.
func (c *Composer) compose(id *models.Identity) stream.Source[Snapshot] {
	state := stream.Share(c.access.State(id))

	active := stream.Distinct(stream.Map(state, func(st services.AccessState) string { return st.Active }))
	graph := stream.SwitchMap(active, func(tree string) stream.Source[graphPart] {
		return stream.CombineLatest2(c.graph.PeopleOf(tree), c.graph.RelationshipsOf(tree),
			func(people []*models.Person, rels []*models.Relationship) graphPart {
				return graphPart{tree: tree, people: people, rels: rels}
			})
	})

	type joined struct {
		state services.AccessState
		graph graphPart
	}
	consistent := stream.Filter(
		stream.CombineLatest2(state, graph, func(st services.AccessState, g graphPart) joined {
			return joined{state: st, graph: g}
		}),
		func(j joined) bool { return j.graph.tree == j.state.Active },
	)
	withGraph := stream.Map(consistent, func(j joined) Snapshot {
		return Snapshot{
			Identity:        id,
			ActiveTreeUID:   j.state.Active,
			TreeLabel:       TreeLabel(id, j.state.Active, j.state.Trees),
			Nodes:           render.Nodes(j.graph.people),
			Edges:           render.Edges(j.graph.rels),
			AccessibleTrees: j.state.Trees,
			CanEdit:         j.state.Active != "" && j.state.Active == id.UID,
		}
	})
	return stream.CombineLatest2(withGraph, c.invites.Pending(stream.Of(id)), func(s Snapshot, pending []*models.Invitation) Snapshot {
		s.PendingInvitations = pending
		return s
	})
}

// TreeLabel names the tree being viewed.
func TreeLabel(id *models.Identity, active string, trees []*models.SharedTree) string {
	if id == nil || active == "" {
		return LoadingLabel
	}
	if active == id.UID {
		return fmt.Sprintf("My tree (%s)", id.Email)
	}
	for _, t := range trees {
		if t.OwnerUID != active || !t.IsSelected {
			continue
		}
		if t.TreeName != nil && *t.TreeName != "" {
			return *t.TreeName
		}
		return fmt.Sprintf("Tree of %s", t.OwnerEmail)
	}
	return LoadingLabel
}

// Watch delivers snapshots of identities to fn on the loop until the
// returned cancel is called.
func (c *Composer) Watch(ctx context.Context, identities stream.Source[*models.Identity], fn func(Snapshot)) (func(), error) {
	return stream.Observe(ctx, c.loop, c.Snapshots(identities), fn)
}

// Snapshot returns the first complete snapshot of id.
func (c *Composer) Snapshot(ctx context.Context, id *models.Identity) (Snapshot, error) {
	return stream.First(ctx, c.loop, c.Snapshots(stream.Of(id)))
}
