package reports

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/angelmondragon/civicpulse-backend/internal/policy"
	"github.com/angelmondragon/civicpulse-backend/internal/users"
	"github.com/angelmondragon/civicpulse-backend/pkg/db"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/dbtest"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	"github.com/angelmondragon/civicpulse-backend/pkg/outbox"
	"github.com/angelmondragon/civicpulse-backend/pkg/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type failingOutbox struct{}

func (failingOutbox) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

func newOutboxFixture(t *testing.T, build func(*gorm.DB) eventOutbox) (*gorm.DB, Service, *recordingPublisher, *users.Repository) {
	t.Helper()
	gdb := dbtest.Open(t)
	userRepo := users.NewRepository(gdb)
	direct := &recordingPublisher{}
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(gdb),
		DB:     db.Wrap(gdb),
		Users:  userRepo,
		Events: direct,
		Outbox: build(gdb),
	})
	require.NoError(t, err)
	return gdb, svc, direct, userRepo
}

func TestOutboxRecordsEventsWithTheChange(t *testing.T) {
	gdb, svc, direct, userRepo := newOutboxFixture(t, func(gdb *gorm.DB) eventOutbox {
		return outbox.NewService(outbox.NewRepository(gdb), nil)
	})
	ctx := context.Background()

	citizen, err := userRepo.Create(ctx, users.CreateUserDTO{Email: "c@example.com", PasswordHash: "hash", Name: "Citizen"})
	require.NoError(t, err)
	admin, err := userRepo.Create(ctx, users.CreateUserDTO{Email: "a@example.com", PasswordHash: "hash", Name: "Admin", Role: enums.UserRoleAdministrator})
	require.NoError(t, err)

	created, err := svc.Create(ctx, policy.NewActor(citizen.ID, citizen.Role, nil), validInput())
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, policy.NewActor(admin.ID, admin.Role, nil), created.ID, StatusInput{Status: enums.ReportStatusResolved})
	require.NoError(t, err)

	assert.Empty(t, direct.types(), "outbox replaces direct publishing")

	var rows []models.OutboxEvent
	require.NoError(t, gdb.Find(&rows).Error)
	require.Len(t, rows, 2)

	types := []enums.OutboxEventType{rows[0].EventType, rows[1].EventType}
	assert.ElementsMatch(t, []enums.OutboxEventType{enums.EventReportCreated, enums.EventReportStatusChanged}, types)
	for _, row := range rows {
		assert.Equal(t, created.ID, row.AggregateID)
		assert.Equal(t, enums.AggregateReport, row.AggregateType)
		assert.Nil(t, row.PublishedAt)

		var env pubsub.Envelope
		require.NoError(t, json.Unmarshal(row.Payload, &env))
		assert.Equal(t, row.EventID.String(), env.EventID)
		assert.Equal(t, string(row.EventType), env.EventType)
		assert.Contains(t, string(env.Data), created.ID.String())
	}
}

func TestOutboxFailureRollsBackCreate(t *testing.T) {
	gdb, svc, _, userRepo := newOutboxFixture(t, func(*gorm.DB) eventOutbox {
		return failingOutbox{}
	})
	ctx := context.Background()
	citizen, err := userRepo.Create(ctx, users.CreateUserDTO{Email: "c@example.com", PasswordHash: "hash", Name: "Citizen"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, policy.NewActor(citizen.ID, citizen.Role, nil), validInput())
	require.Error(t, err)

	var count int64
	require.NoError(t, gdb.Model(&models.Report{}).Count(&count).Error)
	assert.Zero(t, count)
}
