package authority

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/galleryspace/relay/internal/dependencies/mocks"
	"github.com/galleryspace/relay/internal/model"
	"github.com/galleryspace/relay/internal/testutil"
)

type CoordinatorSuite struct {
	suite.Suite
	state       *model.GameState
	random      *mocks.MockRandom
	coordinator *Coordinator
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.state = model.NewGameState()
	s.random = mocks.NewMockRandom()
	s.coordinator = New(s.state, s.random, testutil.NopLogger())
}

func (s *CoordinatorSuite) addSession(id string) {
	s.state.Sessions[model.SessionID(id)] = &model.Session{ID: model.SessionID(id)}
}

func (s *CoordinatorSuite) TestFirstJoinerBecomesAuthority() {
	s.addSession("alice")

	changed := s.coordinator.EnsureAssigned("alice")
	s.True(changed)
	s.Equal(model.SessionID("alice"), s.coordinator.Current())
}

func (s *CoordinatorSuite) TestLaterJoinersDoNotDisplaceAuthority() {
	s.addSession("alice")
	s.coordinator.EnsureAssigned("alice")

	s.addSession("bob")
	changed := s.coordinator.EnsureAssigned("bob")
	s.False(changed)
	s.Equal(model.SessionID("alice"), s.coordinator.Current())
}

func (s *CoordinatorSuite) TestDepartureOfNonAuthorityChangesNothing() {
	s.addSession("alice")
	s.addSession("bob")
	s.coordinator.EnsureAssigned("alice")

	delete(s.state.Sessions, "bob")
	current, changed := s.coordinator.HandleDeparture("bob")
	s.False(changed)
	s.Equal(model.SessionID("alice"), current)
}

func (s *CoordinatorSuite) TestAuthorityMigratesOnDeparture() {
	s.addSession("alice")
	s.addSession("bob")
	s.addSession("carol")
	s.coordinator.EnsureAssigned("alice")

	delete(s.state.Sessions, "alice")
	// Remaining sessions sort as [bob carol]
	s.random.QueueIntn(1)

	current, changed := s.coordinator.HandleDeparture("alice")
	s.True(changed)
	s.Equal(model.SessionID("carol"), current)
	s.Equal(model.SessionID("carol"), s.coordinator.Current())
}

func (s *CoordinatorSuite) TestAuthorityClearsWhenLastSessionLeaves() {
	s.addSession("alice")
	s.coordinator.EnsureAssigned("alice")

	delete(s.state.Sessions, "alice")
	current, changed := s.coordinator.HandleDeparture("alice")
	s.True(changed)
	s.Equal(model.SessionID(""), current)
}

func (s *CoordinatorSuite) TestAuthorityReassignedAfterEmpty() {
	s.addSession("alice")
	s.coordinator.EnsureAssigned("alice")
	delete(s.state.Sessions, "alice")
	s.coordinator.HandleDeparture("alice")

	s.addSession("bob")
	changed := s.coordinator.EnsureAssigned("bob")
	s.True(changed)
	s.Equal(model.SessionID("bob"), s.coordinator.Current())
}
