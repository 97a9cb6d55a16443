package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/galleryspace/relay/internal/dependencies/random"
	"github.com/galleryspace/relay/internal/model"
)

// Service owns the set of networked objects: unique id allocation, the
// ownership field, and type classification. Only this service and the
// orphan reassignment path write an object's owner. All methods are called
// from the relay loop, so no locking is needed.
type Service struct {
	state  *model.GameState
	random random.Random
	logger *slog.Logger
}

// New creates a new registry Service operating on the given state
func New(state *model.GameState, random random.Random, logger *slog.Logger) *Service {
	return &Service{
		state:  state,
		random: random,
		logger: logger.With(slog.String("component", "registry")),
	}
}

// Create stores a new object under a counter-allocated id. The owner field
// is force-set to the requesting session regardless of what the descriptor
// claims (anti-spoofing). Returns the stored object for broadcast.
func (s *Service) Create(desc *model.NetObject, requester model.SessionID) *model.NetObject {
	desc.UniqueID = model.ObjectID(fmt.Sprintf("o%d", s.state.NextUniqueID))
	s.state.NextUniqueID++
	desc.Owner = requester
	s.state.Objects[desc.UniqueID] = desc
	return desc
}

// CreateAvatar stores a new avatar object. Avatars use the owning session
// id as their unique id, the one case where the id is not counter-derived.
func (s *Service) CreateAvatar(desc *model.NetObject, requester model.SessionID) *model.NetObject {
	desc.UniqueID = model.ObjectID(requester)
	desc.Owner = requester
	s.state.Objects[desc.UniqueID] = desc
	return desc
}

// RegisterExisting records an object discovered in the scene by a session.
// If the id is already known the stored object is untouched; the second
// return value reports whether the object was newly seen. A newly seen
// object is owned by its discoverer.
func (s *Service) RegisterExisting(desc *model.NetObject, discoverer model.SessionID) (*model.NetObject, bool) {
	if existing, ok := s.state.Objects[desc.UniqueID]; ok {
		return existing, false
	}
	s.logger.Info("registering scene object",
		slog.String("unique_id", string(desc.UniqueID)),
		slog.String("discoverer", string(discoverer)))
	desc.Owner = discoverer
	s.state.Objects[desc.UniqueID] = desc
	return desc, true
}

// Get returns the object with the given id
func (s *Service) Get(id model.ObjectID) (*model.NetObject, bool) {
	obj, ok := s.state.Objects[id]
	return obj, ok
}

// OwnedBy reports whether the object exists and is owned by the session
func (s *Service) OwnedBy(id model.ObjectID, session model.SessionID) bool {
	obj, ok := s.state.Objects[id]
	return ok && obj.Owner == session
}

// TransferOwnership rebinds the object's owner to the requester. Only
// Shared and Persistent objects accept transfer.
func (s *Service) TransferOwnership(id model.ObjectID, requester model.SessionID) (*model.NetObject, error) {
	obj, ok := s.state.Objects[id]
	if !ok {
		return nil, model.ErrObjectNotFound
	}
	if !obj.Type.Transferable() {
		return nil, model.ErrNotTransferable
	}
	obj.Owner = requester
	return obj, nil
}

// SetVariables replaces the object's whole variable map. Only the owner may
// mutate; a per-key merge is deliberately not performed (last full payload
// wins).
func (s *Service) SetVariables(id model.ObjectID, requester model.SessionID, vars map[string]json.RawMessage) error {
	obj, ok := s.state.Objects[id]
	if !ok {
		return model.ErrObjectNotFound
	}
	if obj.Owner != requester {
		return model.ErrNotOwner
	}
	obj.Variables = vars
	return nil
}

// UpdateTransform stores the object's new spatial state, last writer wins.
// There is no ownership check on this path; unknown ids update nothing.
func (s *Service) UpdateTransform(id model.ObjectID, t model.Transform) {
	if obj, ok := s.state.Objects[id]; ok {
		obj.Transform = t
	}
}

// Destroy removes the object. Only the owner may destroy.
func (s *Service) Destroy(id model.ObjectID, requester model.SessionID) error {
	obj, ok := s.state.Objects[id]
	if !ok {
		return model.ErrObjectNotFound
	}
	if obj.Owner != requester {
		return model.ErrNotOwner
	}
	delete(s.state.Objects, id)
	return nil
}

// ClaimOwnerless assigns the claimant as owner of every currently unowned
// object. Objects are left ownerless when their owner departs with nobody
// remaining, and are claimed by the next joiner here.
func (s *Service) ClaimOwnerless(claimant model.SessionID) {
	for _, obj := range s.state.Objects {
		if obj.Owner == "" {
			obj.Owner = claimant
		}
	}
}

// All returns every registered object in stable id order, used to replay
// the registry to a joining session
func (s *Service) All() []*model.NetObject {
	ids := s.sortedObjectIDs()
	objs := make([]*model.NetObject, len(ids))
	for i, id := range ids {
		objs[i] = s.state.Objects[id]
	}
	return objs
}

// PruneNonPersistent deletes every object whose type is not Persistent,
// returning the number removed. Called before the empty-state snapshot:
// only Persistent objects survive a full-empty cycle.
func (s *Service) PruneNonPersistent() int {
	removed := 0
	for id, obj := range s.state.Objects {
		if obj.Type != model.ObjectPersistent {
			delete(s.state.Objects, id)
			removed++
		}
	}
	return removed
}

// ReassignOrphans handles every object owned by a departing session:
// Transient objects are deleted, everything else is handed to a new owner
// picked uniformly among the remaining sessions (or left ownerless when
// none remain, claimable by the next joiner). Returns the destroyed ids and
// the ownership changes for broadcast.
func (s *Service) ReassignOrphans(departing model.SessionID) ([]model.ObjectID, []model.OwnerChange) {
	var destroyed []model.ObjectID
	var reassigned []model.OwnerChange

	for _, id := range s.sortedObjectIDs() {
		obj := s.state.Objects[id]
		if obj.Owner != departing {
			continue
		}

		if obj.Type == model.ObjectTransient {
			delete(s.state.Objects, id)
			destroyed = append(destroyed, id)
			continue
		}

		newOwner := s.pickSession()
		obj.Owner = newOwner
		reassigned = append(reassigned, model.OwnerChange{UniqueID: id, Owner: newOwner})
	}

	if len(destroyed) > 0 || len(reassigned) > 0 {
		s.logger.Info("reassigned orphans",
			slog.String("departing", string(departing)),
			slog.Int("destroyed", len(destroyed)),
			slog.Int("reassigned", len(reassigned)))
	}

	return destroyed, reassigned
}

// pickSession picks a connected session uniformly at random, or empty if
// none are connected. Keys are sorted so the choice is deterministic for a
// given random sequence.
func (s *Service) pickSession() model.SessionID {
	if len(s.state.Sessions) == 0 {
		return ""
	}
	ids := make([]model.SessionID, 0, len(s.state.Sessions))
	for id := range s.state.Sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids[s.random.Intn(len(ids))]
}

func (s *Service) sortedObjectIDs() []model.ObjectID {
	ids := make([]model.ObjectID, 0, len(s.state.Objects))
	for id := range s.state.Objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
