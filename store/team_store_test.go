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

func strPtr(s string) *string { return &s }

func TestCreateTeamRejectsCaseInsensitiveDuplicate(t *testing.T) {
	db := testutil.NewDB(t)
	teams := NewGormTeamStore(db)
	owner := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()

	team, err := teams.CreateTeam(ctx, NewTeam{Name: "Eng", Description: "engineering"}, owner)
	require.NoError(t, err)
	assert.Equal(t, "eng", team.NameKey)
	assert.Equal(t, "eng", team.Slug)
	assert.Equal(t, owner.ID, team.OwnerID)

	_, err = teams.CreateTeam(ctx, NewTeam{Name: "ENG"}, owner)
	assert.True(t, apperr.Is(err, apperr.KindDuplicateName), "got %v", err)

	_, err = teams.CreateTeam(ctx, NewTeam{Name: "  eng  "}, owner)
	assert.True(t, apperr.Is(err, apperr.KindDuplicateName), "got %v", err)
}

func TestCreateTeamConcurrentSameName(t *testing.T) {
	db := testutil.NewDB(t)
	teams := NewGormTeamStore(db)
	owner := testutil.CreateUser(t, db, "owner@example.com")

	names := []string{"Eng", "ENG", "eng", "eNg", "Eng", "ENg"}
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			_, errs[i] = teams.CreateTeam(context.Background(), NewTeam{Name: name}, owner)
		}(i, name)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.True(t, apperr.Is(err, apperr.KindDuplicateName), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, created)

	var count int64
	require.NoError(t, db.Model(&models.Team{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUniqueIndexBacksTeamNames(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner@example.com")

	require.NoError(t, db.Create(&models.Team{Name: "Eng", OwnerID: owner.ID}).Error)
	err := db.Create(&models.Team{Name: "eng", OwnerID: owner.ID}).Error
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))

	mapped := writeError(err, errTeamNameTaken(), "create")
	assert.True(t, apperr.Is(mapped, apperr.KindDuplicateName))
}

func TestCreateTeamDoesNotEnrollOwner(t *testing.T) {
	db := testutil.NewDB(t)
	stores := NewGormStores(db)
	owner := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()

	team, err := stores.Teams.CreateTeam(ctx, NewTeam{Name: "Eng"}, owner)
	require.NoError(t, err)

	member, err := stores.Memberships.IsTeamMember(ctx, team.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, member)

	loaded, err := stores.Teams.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Memberships)
	require.NotNil(t, loaded.Owner)
	assert.Equal(t, "owner@example.com", loaded.Owner.Email)
}

func TestUpdateTeamAppliesOnlyPresentFields(t *testing.T) {
	db := testutil.NewDB(t)
	teams := NewGormTeamStore(db)
	owner := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()

	team, err := teams.CreateTeam(ctx, NewTeam{Name: "Eng", Description: "old"}, owner)
	require.NoError(t, err)

	updated, err := teams.UpdateTeam(ctx, team, models.TeamPatch{Description: strPtr("new")})
	require.NoError(t, err)
	assert.Equal(t, "Eng", updated.Name)
	assert.Equal(t, "new", updated.Description)

	// renaming to a different case of its own name is allowed
	updated, err = teams.UpdateTeam(ctx, updated, models.TeamPatch{Name: strPtr("ENG")})
	require.NoError(t, err)
	assert.Equal(t, "ENG", updated.Name)
	assert.Equal(t, "new", updated.Description)

	// an empty patch writes nothing and hands the team back
	assert.True(t, models.TeamPatch{}.Empty())
	same, err := teams.UpdateTeam(ctx, updated, models.TeamPatch{})
	require.NoError(t, err)
	assert.Same(t, updated, same)
}

func TestUpdateTeamRenameConflict(t *testing.T) {
	db := testutil.NewDB(t)
	teams := NewGormTeamStore(db)
	owner := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()

	_, err := teams.CreateTeam(ctx, NewTeam{Name: "Eng"}, owner)
	require.NoError(t, err)
	ops, err := teams.CreateTeam(ctx, NewTeam{Name: "Ops"}, owner)
	require.NoError(t, err)

	_, err = teams.UpdateTeam(ctx, ops, models.TeamPatch{Name: strPtr("eng")})
	assert.True(t, apperr.Is(err, apperr.KindDuplicateName), "got %v", err)

	_, err = teams.UpdateTeam(ctx, ops, models.TeamPatch{Name: strPtr("   ")})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
}

func TestDeleteTeamIsSoft(t *testing.T) {
	db := testutil.NewDB(t)
	teams := NewGormTeamStore(db)
	owner := testutil.CreateUser(t, db, "owner@example.com")
	ctx := context.Background()

	team, err := teams.CreateTeam(ctx, NewTeam{Name: "Eng"}, owner)
	require.NoError(t, err)
	require.NoError(t, teams.DeleteTeam(ctx, team))
	assert.True(t, team.IsDeleted())

	loaded, err := teams.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.NotNil(t, loaded.DeletedAt)

	list, err := teams.ListTeams(ctx, TeamFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = teams.GetTeam(ctx, team.ID+100)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListTeamsFilters(t *testing.T) {
	db := testutil.NewDB(t)
	stores := NewGormStores(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")
	require.NoError(t, db.Model(bob).Update("first_name", "Roberto").Error)

	eng, err := stores.Teams.CreateTeam(ctx, NewTeam{Name: "Engineering", Description: "builds things"}, alice)
	require.NoError(t, err)
	ops, err := stores.Teams.CreateTeam(ctx, NewTeam{Name: "Operations"}, bob)
	require.NoError(t, err)
	_, err = stores.Memberships.AddTeamMember(ctx, ops, alice, models.RoleMember)
	require.NoError(t, err)

	ids := func(teams []models.Team) []uint {
		out := make([]uint, 0, len(teams))
		for _, team := range teams {
			out = append(out, team.ID)
		}
		return out
	}

	all, err := stores.Teams.ListTeams(ctx, TeamFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uint{eng.ID, ops.ID}, ids(all))

	byName, err := stores.Teams.ListTeams(ctx, TeamFilter{Name: "ENGIN"})
	require.NoError(t, err)
	assert.Equal(t, []uint{eng.ID}, ids(byName))

	byOwner, err := stores.Teams.ListTeams(ctx, TeamFilter{OwnerID: bob.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{ops.ID}, ids(byOwner))

	byMember, err := stores.Teams.ListTeams(ctx, TeamFilter{MemberID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{ops.ID}, ids(byMember))

	byDescription, err := stores.Teams.ListTeams(ctx, TeamFilter{Q: "things"})
	require.NoError(t, err)
	assert.Equal(t, []uint{eng.ID}, ids(byDescription))

	byOwnerName, err := stores.Teams.ListTeams(ctx, TeamFilter{Q: "robert"})
	require.NoError(t, err)
	assert.Equal(t, []uint{ops.ID}, ids(byOwnerName))

	require.Len(t, byMember, 1)
	require.Len(t, byMember[0].Memberships, 1)
	assert.Equal(t, alice.ID, byMember[0].Memberships[0].User.ID)
}
