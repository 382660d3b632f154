package account_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pillarmind/account-service/internal/lib/password"
	"github.com/pillarmind/account-service/internal/models"
	accountservice "github.com/pillarmind/account-service/internal/services/account"
)

// Мок для Repository
type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) GetAccountByUID(ctx context.Context, uid string) (*models.Account, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *RepoMock) GetProfile(ctx context.Context, accountUID string) (*models.Profile, error) {
	args := m.Called(ctx, accountUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *RepoMock) UpdateProfile(ctx context.Context, profile models.Profile, phone *string) error {
	args := m.Called(ctx, profile, phone)
	return args.Error(0)
}

func (m *RepoMock) UpdatePrivacy(ctx context.Context, accountUID string, privacy models.PrivacySettings) error {
	args := m.Called(ctx, accountUID, privacy)
	return args.Error(0)
}

func (m *RepoMock) UpdateRole(ctx context.Context, uid string, role models.Role) error {
	args := m.Called(ctx, uid, role)
	return args.Error(0)
}

func (m *RepoMock) TransitionState(ctx context.Context, event models.StatusEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *RepoMock) ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

func (m *RepoMock) ListStatusEvents(ctx context.Context, accountUID string) ([]*models.StatusEvent, error) {
	args := m.Called(ctx, accountUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StatusEvent), args.Error(1)
}

// Мок для Cache
type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *CacheMock) Invalidate(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

// Мок для EventPublisher
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(routingKey string, event any) error {
	args := m.Called(routingKey, event)
	return args.Error(0)
}

// passthroughCache кеш, который всегда промахивается.
func passthroughCache() *CacheMock {
	c := new(CacheMock)
	c.On("Get", mock.Anything, mock.Anything).Return(false, nil).Maybe()
	c.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	c.On("Invalidate", mock.Anything).Return(nil).Maybe()
	return c
}

func newService(repo *RepoMock, cache *CacheMock, pub *PublisherMock) *accountservice.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return accountservice.New(repo, cache, pub, logger)
}

func strPtr(s string) *string { return &s }

func baseProfile(uid string) *models.Profile {
	return &models.Profile{
		AccountUID:    uid,
		FullName:      strPtr("Old Name"),
		Bio:           strPtr("old bio"),
		PillarWeights: models.DefaultPillarWeights(),
		Privacy:       models.DefaultPrivacySettings(),
	}
}

func TestService_Get(t *testing.T) {
	owner := models.Principal{UID: "uid-1", Role: models.RoleUser}
	stranger := models.Principal{UID: "uid-2", Role: models.RoleUser}

	t.Run("cache miss falls through to repository", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := newService(repo, cache, new(PublisherMock))

		cache.On("Get", "account:uid-1", mock.Anything).Return(false, nil).Once()
		repo.On("GetAccountByUID", mock.Anything, "uid-1").Return(&models.Account{UID: "uid-1"}, nil).Once()
		repo.On("GetProfile", mock.Anything, "uid-1").Return(baseProfile("uid-1"), nil).Once()
		cache.On("Set", "account:uid-1", mock.Anything, time.Hour).Return(nil).Once()

		got, err := svc.Get(context.Background(), owner, "uid-1")
		require.NoError(t, err)
		assert.Equal(t, "uid-1", got.Account.UID)

		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("cache hit skips repository", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := newService(repo, cache, new(PublisherMock))

		cache.On("Get", "account:uid-1", mock.Anything).Return(true, nil).Once()

		_, err := svc.Get(context.Background(), owner, "uid-1")
		require.NoError(t, err)
		repo.AssertNotCalled(t, "GetAccountByUID", mock.Anything, mock.Anything)
	})

	t.Run("stranger is denied", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newService(repo, passthroughCache(), new(PublisherMock))

		_, err := svc.Get(context.Background(), stranger, "uid-1")
		assert.ErrorIs(t, err, models.ErrPermissionDenied)
		repo.AssertNotCalled(t, "GetAccountByUID", mock.Anything, mock.Anything)
	})
}

func TestService_UpdateProfile(t *testing.T) {
	owner := models.Principal{UID: "uid-1", Role: models.RoleUser}

	tests := []struct {
		name       string
		upd        models.ProfileUpdate
		setupRepo  func(r *RepoMock)
		wantErr    bool
		checkAfter func(t *testing.T, got *models.Profile)
	}{
		{
			name: "valid full update",
			upd: models.ProfileUpdate{
				FullName:    strPtr("New Name"),
				Bio:         strPtr("new bio"),
				DateOfBirth: strPtr("1990-05-20"),
				Medications: []models.Medication{{Name: "Sertraline", Dosage: "50mg"}},
				PillarWeights: map[string]float64{
					"health": 0.4, "work": 0.3, "growth": 0.2, "relationships": 0.1,
				},
			},
			setupRepo: func(r *RepoMock) {
				r.On("GetProfile", mock.Anything, "uid-1").Return(baseProfile("uid-1"), nil).Once()
				r.On("UpdateProfile", mock.Anything, mock.MatchedBy(func(p models.Profile) bool {
					return *p.FullName == "New Name" && p.PillarWeights.Health == 0.4
				}), mock.Anything).Return(nil).Once()
			},
			checkAfter: func(t *testing.T, got *models.Profile) {
				assert.Equal(t, "New Name", *got.FullName)
				assert.Equal(t, "new bio", *got.Bio)
				assert.Equal(t, 1990, got.DateOfBirth.Year())
			},
		},
		{
			name: "nil fields are untouched",
			upd:  models.ProfileUpdate{Bio: strPtr("only the bio changes")},
			setupRepo: func(r *RepoMock) {
				r.On("GetProfile", mock.Anything, "uid-1").Return(baseProfile("uid-1"), nil).Once()
				r.On("UpdateProfile", mock.Anything, mock.MatchedBy(func(p models.Profile) bool {
					return *p.FullName == "Old Name" && *p.Bio == "only the bio changes"
				}), mock.Anything).Return(nil).Once()
			},
			checkAfter: func(t *testing.T, got *models.Profile) {
				assert.Equal(t, "Old Name", *got.FullName)
			},
		},
		{
			name: "weights not summing to 1.0 rejected",
			upd: models.ProfileUpdate{PillarWeights: map[string]float64{
				"health": 0.5, "work": 0.5, "growth": 0.5, "relationships": 0.5,
			}},
			setupRepo: func(r *RepoMock) {
				r.On("GetProfile", mock.Anything, "uid-1").Return(baseProfile("uid-1"), nil).Once()
			},
			wantErr: true,
		},
		{
			name: "partial weights rejected even when summing to 1.0",
			upd:  models.ProfileUpdate{PillarWeights: map[string]float64{"health": 1.0}},
			setupRepo: func(r *RepoMock) {
				r.On("GetProfile", mock.Anything, "uid-1").Return(baseProfile("uid-1"), nil).Once()
			},
			wantErr: true,
		},
		{
			name: "unknown pillar rejected",
			upd: models.ProfileUpdate{PillarWeights: map[string]float64{
				"health": 0.25, "work": 0.25, "growth": 0.25, "wealth": 0.25,
			}},
			setupRepo: func(r *RepoMock) {
				r.On("GetProfile", mock.Anything, "uid-1").Return(baseProfile("uid-1"), nil).Once()
			},
			wantErr: true,
		},
		{
			name: "underage date of birth rejected",
			upd:  models.ProfileUpdate{DateOfBirth: strPtr("2020-01-01")},
			setupRepo: func(r *RepoMock) {
				r.On("GetProfile", mock.Anything, "uid-1").Return(baseProfile("uid-1"), nil).Once()
			},
			wantErr: true,
		},
		{
			name: "malformed date of birth rejected",
			upd:  models.ProfileUpdate{DateOfBirth: strPtr("20-01-2020")},
			setupRepo: func(r *RepoMock) {
				r.On("GetProfile", mock.Anything, "uid-1").Return(baseProfile("uid-1"), nil).Once()
			},
			wantErr: true,
		},
		{
			name: "medication without dosage rejected",
			upd:  models.ProfileUpdate{Medications: []models.Medication{{Name: "Sertraline"}}},
			setupRepo: func(r *RepoMock) {
				r.On("GetProfile", mock.Anything, "uid-1").Return(baseProfile("uid-1"), nil).Once()
			},
			wantErr: true,
		},
		{
			name: "invalid phone rejected",
			upd:  models.ProfileUpdate{Phone: strPtr("not-a-phone")},
			setupRepo: func(r *RepoMock) {
				r.On("GetProfile", mock.Anything, "uid-1").Return(baseProfile("uid-1"), nil).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			svc := newService(repo, passthroughCache(), new(PublisherMock))
			tt.setupRepo(repo)

			got, err := svc.UpdateProfile(context.Background(), owner, "uid-1", tt.upd)
			if tt.wantErr {
				assert.True(t, models.IsValidationError(err))
				repo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				tt.checkAfter(t, got)
			}

			repo.AssertExpectations(t)
		})
	}

	t.Run("stranger is denied before reading profile", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newService(repo, passthroughCache(), new(PublisherMock))

		stranger := models.Principal{UID: "uid-2", Role: models.RoleUser}
		_, err := svc.UpdateProfile(context.Background(), stranger, "uid-1", models.ProfileUpdate{})
		assert.ErrorIs(t, err, models.ErrPermissionDenied)
		repo.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
	})

	t.Run("phone rides the same repository write as the profile", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newService(repo, passthroughCache(), new(PublisherMock))

		repo.On("GetProfile", mock.Anything, "uid-1").Return(baseProfile("uid-1"), nil).Once()
		repo.On("UpdateProfile", mock.Anything, mock.Anything, mock.MatchedBy(func(phone *string) bool {
			return phone != nil && *phone == "12345678901"
		})).Return(nil).Once()

		_, err := svc.UpdateProfile(context.Background(), owner, "uid-1",
			models.ProfileUpdate{Phone: strPtr("12345678901"), Bio: strPtr("new bio")})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("failed write leaves phone unapplied and cache untouched", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := newService(repo, cache, new(PublisherMock))

		repo.On("GetProfile", mock.Anything, "uid-1").Return(baseProfile("uid-1"), nil).Once()
		repo.On("UpdateProfile", mock.Anything, mock.Anything, mock.Anything).
			Return(models.ErrConflict).Once()

		_, err := svc.UpdateProfile(context.Background(), owner, "uid-1",
			models.ProfileUpdate{Phone: strPtr("12345678901"), Bio: strPtr("new bio")})
		assert.ErrorIs(t, err, models.ErrConflict)
		cache.AssertNotCalled(t, "Invalidate", mock.Anything)
		repo.AssertExpectations(t)
	})
}

func TestService_UpdatePrivacy(t *testing.T) {
	owner := models.Principal{UID: "uid-1", Role: models.RoleUser}
	off := false

	repo := new(RepoMock)
	svc := newService(repo, passthroughCache(), new(PublisherMock))

	repo.On("GetProfile", mock.Anything, "uid-1").Return(baseProfile("uid-1"), nil).Once()
	repo.On("UpdatePrivacy", mock.Anything, "uid-1", mock.MatchedBy(func(p models.PrivacySettings) bool {
		// затронут только show_in_search, остальные сохраняются
		return !p.ShowInSearch && p.ShowProfile && p.AllowMessages
	})).Return(nil).Once()

	got, err := svc.UpdatePrivacy(context.Background(), owner, "uid-1", models.PrivacyUpdate{ShowInSearch: &off})
	require.NoError(t, err)
	assert.False(t, got.ShowInSearch)
	assert.True(t, got.ShowProfile)

	repo.AssertExpectations(t)
}

func TestService_TransitionState(t *testing.T) {
	admin := models.Principal{UID: "admin-1", Role: models.RoleAdmin}
	owner := models.Principal{UID: "uid-1", Role: models.RoleUser}
	stranger := models.Principal{UID: "uid-2", Role: models.RoleUser}

	accountIn := func(state models.State) *models.Account {
		return &models.Account{UID: "uid-1", Username: "testuser", State: state}
	}

	tests := []struct {
		name       string
		principal  models.Principal
		from       models.State
		to         models.State
		reason     string
		setupMocks func(r *RepoMock, p *PublisherMock)
		wantErr    error
		wantValErr bool
	}{
		{
			name:      "admin suspends with reason",
			principal: admin,
			from:      models.StateActive,
			to:        models.StateSuspended,
			reason:    "terms violation",
			setupMocks: func(r *RepoMock, p *PublisherMock) {
				r.On("TransitionState", mock.Anything, mock.MatchedBy(func(e models.StatusEvent) bool {
					return e.AccountUID == "uid-1" && e.ActorUID == "admin-1" &&
						e.FromState == models.StateActive && e.ToState == models.StateSuspended &&
						e.Reason == "terms violation"
				})).Return(nil).Once()
				p.On("Publish", "account.status_changed", mock.Anything).Return(nil).Once()
			},
		},
		{
			name:       "suspension without reason rejected",
			principal:  admin,
			from:       models.StateActive,
			to:         models.StateSuspended,
			reason:     "   ",
			setupMocks: func(r *RepoMock, p *PublisherMock) {},
			wantValErr: true,
		},
		{
			name:      "owner deactivates self",
			principal: owner,
			from:      models.StateActive,
			to:        models.StateDeactivated,
			setupMocks: func(r *RepoMock, p *PublisherMock) {
				r.On("TransitionState", mock.Anything, mock.Anything).Return(nil).Once()
				p.On("Publish", "account.status_changed", mock.Anything).Return(nil).Once()
			},
		},
		{
			name:       "owner cannot suspend self",
			principal:  owner,
			from:       models.StateActive,
			to:         models.StateSuspended,
			reason:     "some reason",
			setupMocks: func(r *RepoMock, p *PublisherMock) {},
			wantErr:    models.ErrPermissionDenied,
		},
		{
			name:       "stranger cannot deactivate another account",
			principal:  stranger,
			from:       models.StateActive,
			to:         models.StateDeactivated,
			setupMocks: func(r *RepoMock, p *PublisherMock) {},
			wantErr:    models.ErrPermissionDenied,
		},
		{
			name:       "same state transition rejected",
			principal:  admin,
			from:       models.StateActive,
			to:         models.StateActive,
			setupMocks: func(r *RepoMock, p *PublisherMock) {},
			wantErr:    models.ErrInvalidStateTransition,
		},
		{
			name:       "deleted is terminal",
			principal:  admin,
			from:       models.StateDeleted,
			to:         models.StateActive,
			setupMocks: func(r *RepoMock, p *PublisherMock) {},
			wantErr:    models.ErrInvalidStateTransition,
		},
		{
			name:       "unknown target state rejected",
			principal:  admin,
			from:       models.StateActive,
			to:         models.State("banana"),
			setupMocks: func(r *RepoMock, p *PublisherMock) {},
			wantValErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			pub := new(PublisherMock)
			svc := newService(repo, passthroughCache(), pub)

			if tt.to.Valid() {
				repo.On("GetAccountByUID", mock.Anything, "uid-1").Return(accountIn(tt.from), nil)
			}
			tt.setupMocks(repo, pub)

			got, err := svc.TransitionState(context.Background(), tt.principal, "uid-1", tt.to, tt.reason)
			switch {
			case tt.wantValErr:
				assert.True(t, models.IsValidationError(err))
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "TransitionState", mock.Anything, mock.Anything)
			default:
				require.NoError(t, err)
				assert.NotNil(t, got)
			}

			pub.AssertExpectations(t)
		})
	}
}

func TestService_Deactivate(t *testing.T) {
	raw := "Corr3ct!pass"
	hash, err := password.Hash(raw)
	require.NoError(t, err)

	owner := models.Principal{UID: "uid-1", Role: models.RoleUser}
	account := &models.Account{UID: "uid-1", PasswordHash: hash, State: models.StateActive}

	t.Run("correct password deactivates", func(t *testing.T) {
		repo := new(RepoMock)
		pub := new(PublisherMock)
		svc := newService(repo, passthroughCache(), pub)

		repo.On("GetAccountByUID", mock.Anything, "uid-1").Return(account, nil)
		repo.On("TransitionState", mock.Anything, mock.MatchedBy(func(e models.StatusEvent) bool {
			return e.ToState == models.StateDeactivated && e.ActorUID == "uid-1"
		})).Return(nil).Once()
		pub.On("Publish", "account.status_changed", mock.Anything).Return(nil).Once()

		err := svc.Deactivate(context.Background(), owner, raw)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newService(repo, passthroughCache(), new(PublisherMock))

		repo.On("GetAccountByUID", mock.Anything, "uid-1").Return(account, nil).Once()

		err := svc.Deactivate(context.Background(), owner, "Wr0ng!pass1")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
		repo.AssertNotCalled(t, "TransitionState", mock.Anything, mock.Anything)
	})
}

func TestService_ChangeRole(t *testing.T) {
	admin := models.Principal{UID: "admin-1", Role: models.RoleAdmin}
	user := models.Principal{UID: "uid-2", Role: models.RoleUser}

	t.Run("admin promotes user to clinician", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newService(repo, passthroughCache(), new(PublisherMock))

		repo.On("GetAccountByUID", mock.Anything, "uid-1").Return(&models.Account{UID: "uid-1", Role: models.RoleUser}, nil)
		repo.On("UpdateRole", mock.Anything, "uid-1", models.RoleClinician).Return(nil).Once()

		_, err := svc.ChangeRole(context.Background(), admin, "uid-1", models.RoleClinician)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("non-admin denied", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newService(repo, passthroughCache(), new(PublisherMock))

		_, err := svc.ChangeRole(context.Background(), user, "uid-1", models.RoleAdmin)
		assert.ErrorIs(t, err, models.ErrPermissionDenied)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newService(repo, passthroughCache(), new(PublisherMock))

		_, err := svc.ChangeRole(context.Background(), admin, "uid-1", models.Role("superuser"))
		assert.True(t, models.IsValidationError(err))
	})
}

func TestService_List(t *testing.T) {
	admin := models.Principal{UID: "admin-1", Role: models.RoleAdmin}
	user := models.Principal{UID: "uid-1", Role: models.RoleUser}

	t.Run("admin lists with clamped limit", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newService(repo, passthroughCache(), new(PublisherMock))

		repo.On("ListAccounts", mock.Anything, 100, 0).Return([]*models.Account{}, nil).Once()

		_, err := svc.List(context.Background(), admin, 0, 0)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("non-admin denied", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newService(repo, passthroughCache(), new(PublisherMock))

		_, err := svc.List(context.Background(), user, 10, 0)
		assert.ErrorIs(t, err, models.ErrPermissionDenied)
	})
}

func TestService_AuditTrail(t *testing.T) {
	admin := models.Principal{UID: "admin-1", Role: models.RoleAdmin}
	owner := models.Principal{UID: "uid-1", Role: models.RoleUser}
	stranger := models.Principal{UID: "uid-2", Role: models.RoleUser}

	events := []*models.StatusEvent{{AccountUID: "uid-1", FromState: models.StateActive, ToState: models.StateSuspended}}

	t.Run("admin reads any trail", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newService(repo, passthroughCache(), new(PublisherMock))
		repo.On("ListStatusEvents", mock.Anything, "uid-1").Return(events, nil).Once()

		got, err := svc.AuditTrail(context.Background(), admin, "uid-1")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("owner reads own trail", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newService(repo, passthroughCache(), new(PublisherMock))
		repo.On("ListStatusEvents", mock.Anything, "uid-1").Return(events, nil).Once()

		_, err := svc.AuditTrail(context.Background(), owner, "uid-1")
		assert.NoError(t, err)
	})

	t.Run("stranger denied", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newService(repo, passthroughCache(), new(PublisherMock))

		_, err := svc.AuditTrail(context.Background(), stranger, "uid-1")
		assert.ErrorIs(t, err, models.ErrPermissionDenied)
	})
}
