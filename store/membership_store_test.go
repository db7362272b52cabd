package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"teamhub/apperr"
	"teamhub/models"
	"teamhub/testutil"
)

func TestAddTeamMemberDuplicate(t *testing.T) {
	db := testutil.NewDB(t)
	stores := NewGormStores(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")

	team, err := stores.Teams.CreateTeam(ctx, NewTeam{Name: "Eng"}, owner)
	require.NoError(t, err)

	m, err := stores.Memberships.AddTeamMember(ctx, team, bob, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, m.Role)
	assert.False(t, m.JoinedAt.IsZero())

	_, err = stores.Memberships.AddTeamMember(ctx, team, bob, models.RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.KindDuplicateMembership), "got %v", err)

	_, err = stores.Memberships.AddTeamMember(ctx, team, owner, models.TeamRole("boss"))
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
}

func TestAddTeamMemberConcurrent(t *testing.T) {
	db := testutil.NewDB(t)
	stores := NewGormStores(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")
	team, err := stores.Teams.CreateTeam(ctx, NewTeam{Name: "Eng"}, owner)
	require.NoError(t, err)

	const n = 5
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = stores.Memberships.AddTeamMember(ctx, team, bob, models.RoleMember)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, apperr.Is(err, apperr.KindDuplicateMembership), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)
}

func TestUpdateTeamMemberRoleIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	stores := NewGormStores(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")
	team, err := stores.Teams.CreateTeam(ctx, NewTeam{Name: "Eng"}, owner)
	require.NoError(t, err)
	m, err := stores.Memberships.AddTeamMember(ctx, team, bob, models.RoleMember)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		m, err = stores.Memberships.UpdateTeamMemberRole(ctx, m, models.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, m.Role)
	}

	role, ok, err := stores.Memberships.TeamRole(ctx, team.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.RoleAdmin, role)

	admins, err := stores.Memberships.ListTeamMembers(ctx, team.ID, MembershipFilter{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, admins, 1)
	members, err := stores.Memberships.ListTeamMembers(ctx, team.ID, MembershipFilter{Role: models.RoleMember})
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestRemoveTeamMember(t *testing.T) {
	db := testutil.NewDB(t)
	stores := NewGormStores(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")
	team, err := stores.Teams.CreateTeam(ctx, NewTeam{Name: "Eng"}, owner)
	require.NoError(t, err)
	_, err = stores.Memberships.AddTeamMember(ctx, team, bob, models.RoleMember)
	require.NoError(t, err)

	require.NoError(t, stores.Memberships.RemoveTeamMember(ctx, team, bob.ID))
	err = stores.Memberships.RemoveTeamMember(ctx, team, bob.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)

	_, ok, err := stores.Memberships.TeamRole(ctx, team.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveTeamMemberKeepsChannelMemberships(t *testing.T) {
	db := testutil.NewDB(t)
	stores := NewGormStores(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")
	team, err := stores.Teams.CreateTeam(ctx, NewTeam{Name: "Eng"}, owner)
	require.NoError(t, err)
	infra, err := stores.Channels.CreateChannel(ctx, NewChannel{TeamID: team.ID, Name: "infra", IsPrivate: true})
	require.NoError(t, err)
	_, err = stores.Memberships.AddTeamMember(ctx, team, bob, models.RoleMember)
	require.NoError(t, err)
	_, err = stores.Memberships.AddChannelMember(ctx, infra, bob)
	require.NoError(t, err)

	require.NoError(t, stores.Memberships.RemoveTeamMember(ctx, team, bob.ID))

	still, err := stores.Memberships.IsChannelMember(ctx, infra.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, still)

	// the leftover enrollment is still reported as a duplicate
	_, err = stores.Memberships.AddChannelMember(ctx, infra, bob)
	assert.True(t, apperr.Is(err, apperr.KindDuplicateMembership), "got %v", err)
}

func TestAddChannelMemberConcurrent(t *testing.T) {
	db := testutil.NewDB(t)
	stores := NewGormStores(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")
	team, err := stores.Teams.CreateTeam(ctx, NewTeam{Name: "Eng"}, owner)
	require.NoError(t, err)
	infra, err := stores.Channels.CreateChannel(ctx, NewChannel{TeamID: team.ID, Name: "infra", IsPrivate: true})
	require.NoError(t, err)
	_, err = stores.Memberships.AddTeamMember(ctx, team, bob, models.RoleMember)
	require.NoError(t, err)

	const n = 6
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = stores.Memberships.AddChannelMember(ctx, infra, bob)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, apperr.Is(err, apperr.KindDuplicateMembership), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)

	members, err := stores.Memberships.ListChannelMembers(ctx, infra)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestPublicChannelMembersRejected(t *testing.T) {
	db := testutil.NewDB(t)
	stores := NewGormStores(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner@example.com")
	team, err := stores.Teams.CreateTeam(ctx, NewTeam{Name: "Eng"}, owner)
	require.NoError(t, err)
	general, err := stores.Channels.CreateChannel(ctx, NewChannel{TeamID: team.ID, Name: "general"})
	require.NoError(t, err)

	// a row left behind from when the channel was private
	require.NoError(t, db.Create(&models.ChannelMembership{ChannelID: general.ID, UserID: owner.ID}).Error)

	_, err = stores.Memberships.ListChannelMembers(ctx, general)
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation), "got %v", err)

	err = stores.Memberships.RemoveChannelMember(ctx, general, owner.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation), "got %v", err)

	still, err := stores.Memberships.IsChannelMember(ctx, general.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, still)
}

func TestAddChannelMemberGuards(t *testing.T) {
	db := testutil.NewDB(t)
	stores := NewGormStores(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")
	team, err := stores.Teams.CreateTeam(ctx, NewTeam{Name: "Eng"}, owner)
	require.NoError(t, err)
	general, err := stores.Channels.CreateChannel(ctx, NewChannel{TeamID: team.ID, Name: "general"})
	require.NoError(t, err)
	infra, err := stores.Channels.CreateChannel(ctx, NewChannel{TeamID: team.ID, Name: "infra", IsPrivate: true})
	require.NoError(t, err)

	t.Run("public channel", func(t *testing.T) {
		_, err := stores.Memberships.AddChannelMember(ctx, general, bob)
		assert.True(t, apperr.Is(err, apperr.KindInvalidOperation), "got %v", err)
	})

	t.Run("not a team member", func(t *testing.T) {
		_, err := stores.Memberships.AddChannelMember(ctx, infra, bob)
		assert.True(t, apperr.Is(err, apperr.KindPrerequisiteNotMet), "got %v", err)
	})

	t.Run("owner without membership", func(t *testing.T) {
		_, err := stores.Memberships.AddChannelMember(ctx, infra, owner)
		assert.True(t, apperr.Is(err, apperr.KindPrerequisiteNotMet), "got %v", err)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := stores.Memberships.AddTeamMember(ctx, team, bob, models.RoleMember)
		require.NoError(t, err)
		m, err := stores.Memberships.AddChannelMember(ctx, infra, bob)
		require.NoError(t, err)
		assert.Equal(t, infra.ID, m.ChannelID)

		_, err = stores.Memberships.AddChannelMember(ctx, infra, bob)
		assert.True(t, apperr.Is(err, apperr.KindDuplicateMembership), "got %v", err)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, stores.Memberships.RemoveChannelMember(ctx, infra, bob.ID))
		err := stores.Memberships.RemoveChannelMember(ctx, infra, bob.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
	})
}

func TestListVisibleChannels(t *testing.T) {
	db := testutil.NewDB(t)
	stores := NewGormStores(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner@example.com")
	u := testutil.CreateUser(t, db, "u@example.com")
	team, err := stores.Teams.CreateTeam(ctx, NewTeam{Name: "T"}, owner)
	require.NoError(t, err)
	_, err = stores.Memberships.AddTeamMember(ctx, team, u, models.RoleMember)
	require.NoError(t, err)

	_, err = stores.Channels.CreateChannel(ctx, NewChannel{TeamID: team.ID, Name: "general"})
	require.NoError(t, err)
	secrets, err := stores.Channels.CreateChannel(ctx, NewChannel{TeamID: team.ID, Name: "secrets", IsPrivate: true})
	require.NoError(t, err)
	_, err = stores.Channels.CreateChannel(ctx, NewChannel{TeamID: team.ID, Name: "announcements"})
	require.NoError(t, err)

	names := func(channels []models.Channel) []string {
		out := make([]string, 0, len(channels))
		for _, ch := range channels {
			out = append(out, ch.Name)
		}
		return out
	}

	visible, err := stores.Memberships.ListVisibleChannels(ctx, team.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"announcements", "general"}, names(visible))

	_, err = stores.Memberships.AddChannelMember(ctx, secrets, u)
	require.NoError(t, err)

	visible, err = stores.Memberships.ListVisibleChannels(ctx, team.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"announcements", "general", "secrets"}, names(visible))

	all, err := stores.Channels.ListTeamChannels(ctx, team.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	members, err := stores.Memberships.ListChannelMembers(ctx, secrets)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "u@example.com", members[0].User.Email)
}
