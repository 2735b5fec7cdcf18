package profile_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/gymbro-match/internal/app"
	"github.com/oggyb/gymbro-match/internal/auth"
	"github.com/oggyb/gymbro-match/internal/db"
	svcErr "github.com/oggyb/gymbro-match/internal/errors"
	"github.com/oggyb/gymbro-match/internal/repository"
	"github.com/oggyb/gymbro-match/internal/server"
	"github.com/oggyb/gymbro-match/internal/service/dto"
	"github.com/oggyb/gymbro-match/internal/service/profile"
	"github.com/oggyb/gymbro-match/internal/testutil"
)

func boolPtr(b bool) *bool     { return &b }
func strPtr(s string) *string { return &s }

// seedNeighbourhood creates A plus three candidates: B closest to A, D
// further, C orthogonal.
func seedNeighbourhood(t *testing.T, appCtx *app.AppContext) (a, b, c, d *db.User) {
	t.Helper()
	gdb := appCtx.DB
	a = testutil.CreateUser(t, gdb, "1")
	b = testutil.CreateUser(t, gdb, "2")
	c = testutil.CreateUser(t, gdb, "3")
	d = testutil.CreateUser(t, gdb, "4")
	testutil.CreateProfile(t, gdb, a.ID, "A", testutil.Axis(0, 0))
	testutil.CreateProfile(t, gdb, b.ID, "B", testutil.Axis(0, 0.1))
	testutil.CreateProfile(t, gdb, c.ID, "C", testutil.Axis(5, 0))
	testutil.CreateProfile(t, gdb, d.ID, "D", testutil.Axis(0, 0.5))
	return a, b, c, d
}

func TestNextProfileServesByDistanceThenExhausts(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewProfileService(appCtx)
	a, b, c, d := seedNeighbourhood(t, appCtx)

	var served []uint64
	for i := 0; i < 3; i++ {
		p, err := svc.NextProfile(ctx, a.ID)
		require.NoError(t, err)
		served = append(served, p.UserID)
	}
	assert.Equal(t, []uint64{b.ID, d.ID, c.ID}, served)

	seen, err := appCtx.RedisCache.SeenUserIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{b.ID, c.ID, d.ID}, seen)

	_, err = svc.NextProfile(ctx, a.ID)
	assert.True(t, errors.Is(err, svcErr.ErrNoMoreProfiles))
}

func TestNextProfilePrimesQueue(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewProfileService(appCtx)
	a, _, _, _ := seedNeighbourhood(t, appCtx)

	_, err := svc.NextProfile(ctx, a.ID)
	require.NoError(t, err)

	n, err := appCtx.RedisCache.QueueLen(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestNextProfileSkipsSwipedUsers(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewProfileService(appCtx)
	a, b, _, d := seedNeighbourhood(t, appCtx)

	require.NoError(t, appCtx.DB.Create(&db.Action{
		FromUserID: a.ID, ToUserID: b.ID, ActionType: db.ActionDislike,
	}).Error)

	p, err := svc.NextProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, p.UserID)
}

func TestNextProfileRevalidatesQueuedCandidates(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewProfileService(appCtx)
	a, b, c, d := seedNeighbourhood(t, appCtx)

	p, err := svc.NextProfile(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, b.ID, p.UserID)

	// D is queued next; hiding it drops the snapshot
	_, err = svc.Update(ctx, d.ID, profile.UpdateInput{IsActive: boolPtr(false)})
	require.NoError(t, err)

	p, err = svc.NextProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, p.UserID)
}

func TestNextProfileFallsBackToRandom(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewProfileService(appCtx)

	a := testutil.CreateUser(t, appCtx.DB, "1")
	b := testutil.CreateUser(t, appCtx.DB, "2")
	testutil.CreateProfile(t, appCtx.DB, a.ID, "A", nil)
	testutil.CreateProfile(t, appCtx.DB, b.ID, "B", nil)

	p, err := svc.NextProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, p.UserID)

	_, err = svc.NextProfile(ctx, a.ID)
	assert.True(t, errors.Is(err, svcErr.ErrNoMoreProfiles))
}

func TestNextProfileNeverServesSelf(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewProfileService(appCtx)

	a := testutil.CreateUser(t, appCtx.DB, "1")
	pa := testutil.CreateProfile(t, appCtx.DB, a.ID, "A", testutil.Axis(0, 0))

	// a stale queue entry pointing at the requester is skipped
	require.NoError(t, appCtx.RedisCache.ReplaceQueue(ctx, a.ID, []uint64{pa.ID}))

	_, err := svc.NextProfile(ctx, a.ID)
	assert.True(t, errors.Is(err, svcErr.ErrNoMoreProfiles))
}

func TestNextProfileRequiresActiveProfile(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewProfileService(appCtx)

	a := testutil.CreateUser(t, appCtx.DB, "1")
	_, err := svc.NextProfile(ctx, a.ID)
	assert.True(t, errors.Is(err, svcErr.ErrProfileNotFound))

	testutil.CreateProfile(t, appCtx.DB, a.ID, "A", nil)
	_, err = svc.Update(ctx, a.ID, profile.UpdateInput{IsActive: boolPtr(false)})
	require.NoError(t, err)

	_, err = svc.NextProfile(ctx, a.ID)
	assert.True(t, errors.Is(err, svcErr.ErrProfileInactive))
}

func TestCreateProfile(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewProfileService(appCtx)
	u := testutil.CreateUser(t, appCtx.DB, "1")

	age := 25
	in := profile.CreateInput{
		Name:        "  Max ",
		Description: "Powerlifting   four times\n a week",
		Gender:      "male",
		Age:         &age,
		Media:       []dto.Media{{Type: "photo", FileID: "f1"}},
	}
	p, err := svc.Create(ctx, u.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Max", p.Name)
	assert.Equal(t, "Powerlifting four times a week", p.Description)
	assert.True(t, p.IsActive)
	require.NotNil(t, p.Embedding)
	assert.Len(t, p.Embedding.Slice(), db.EmbeddingDim)

	_, err = svc.Create(ctx, u.ID, in)
	assert.True(t, errors.Is(err, svcErr.ErrProfileAlreadyExists))
}

func TestCreateProfileValidation(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewProfileService(appCtx)
	u := testutil.CreateUser(t, appCtx.DB, "1")

	young := 15
	cases := []profile.CreateInput{
		{Name: "M", Description: "Long enough text", Gender: "male"},
		{Name: "Max", Description: "short", Gender: "male"},
		{Name: "Max", Description: "Long enough text", Gender: "robot"},
		{Name: "Max", Description: "Long enough text", Gender: "male", Age: &young},
		{Name: "Max", Description: "Long enough text", Gender: "male", Media: []dto.Media{{Type: "gif", FileID: "x"}}},
		{Name: "Max", Description: "Long enough text", Gender: "male", Media: make([]dto.Media, 11)},
		{Name: "Max", Description: "!!! ... ??? ---", Gender: "male"},
	}
	for i, in := range cases {
		_, err := svc.Create(ctx, u.ID, in)
		assert.Equal(t, http.StatusBadRequest, svcErr.HTTPStatus(err), "case %d", i)
	}
}

type zeroEmbedder struct{}

func (zeroEmbedder) Embed(context.Context, string) ([]float32, error) {
	return make([]float32, db.EmbeddingDim), nil
}

func TestZeroEmbeddingStoredAsNull(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	appCtx.Embedder = zeroEmbedder{}
	svc := profile.NewProfileService(appCtx)
	u := testutil.CreateUser(t, appCtx.DB, "1")

	p, err := svc.Create(ctx, u.ID, profile.CreateInput{
		Name: "Max", Description: "Morning cardio and stretching", Gender: "male",
	})
	require.NoError(t, err)
	assert.Nil(t, p.Embedding)

	var stored db.Profile
	require.NoError(t, appCtx.DB.First(&stored, p.ID).Error)
	assert.Nil(t, stored.Embedding)

	punct := "?!?! ... ?!?!"
	_, err = svc.Update(ctx, u.ID, profile.UpdateInput{Description: &punct})
	assert.Equal(t, http.StatusBadRequest, svcErr.HTTPStatus(err))
}

func TestUpdateReembedsAndInvalidatesSnapshot(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := profile.NewProfileService(appCtx)
	u := testutil.CreateUser(t, appCtx.DB, "1")

	p, err := svc.Create(ctx, u.ID, profile.CreateInput{
		Name: "Max", Description: "Morning cardio and stretching", Gender: "male",
	})
	require.NoError(t, err)
	before := p.Embedding.Slice()
	require.NoError(t, appCtx.RedisCache.CacheProfile(ctx, p))

	p, err = svc.Update(ctx, u.ID, profile.UpdateInput{Description: strPtr("Heavy squats every evening")})
	require.NoError(t, err)
	assert.NotEqual(t, before, p.Embedding.Slice())

	cached, err := appCtx.RedisCache.CachedProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, cached)

	stored, err := repository.NewProfileRepository(appCtx.DB, 0).Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Heavy squats every evening", stored.Description)
	assert.Equal(t, "Max", stored.Name)
}

func TestRoutesLetBannedUsersReadOnly(t *testing.T) {
	appCtx, _ := testutil.NewAppContext(t)
	mw := server.NewMiddleware(repository.NewUserRepository(appCtx.DB), "", "")
	r := chi.NewRouter()
	profile.NewRegistrar(appCtx).RegisterRoutes(r, mw)

	u := testutil.CreateUser(t, appCtx.DB, "77")
	testutil.CreateProfile(t, appCtx.DB, u.ID, "Banned", nil)
	require.NoError(t, appCtx.DB.Model(u).Update("is_banned", true).Error)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set(auth.HeaderTelegramID, "77")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet, "/profile", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Banned"`)

	rec = do(http.MethodGet, "/profile/next", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "USER_BANNED"))

	rec = do(http.MethodPatch, "/profile", `{"is_active":true}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateRouteReturns201(t *testing.T) {
	appCtx, _ := testutil.NewAppContext(t)
	mw := server.NewMiddleware(repository.NewUserRepository(appCtx.DB), "", "")
	r := chi.NewRouter()
	profile.NewRegistrar(appCtx).RegisterRoutes(r, mw)
	testutil.CreateUser(t, appCtx.DB, "5")

	body := `{"name":"Kate","description":"Crossfit fan looking for a partner","gender":"female","age":30}`
	req := httptest.NewRequest(http.MethodPost, "/profile", bytes.NewBufferString(body))
	req.Header.Set(auth.HeaderTelegramID, "5")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"gender":"female"`)

	req = httptest.NewRequest(http.MethodPost, "/profile", bytes.NewBufferString(body))
	req.Header.Set(auth.HeaderTelegramID, "5")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "PROFILE_ALREADY_EXISTS")
}
