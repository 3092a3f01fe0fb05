package services

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/BradenHooton/healthdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramService_Create(t *testing.T) {
	var stored *models.Program
	repo := &MockProgramRepository{
		CreateFunc: func(ctx context.Context, p *models.Program) (*models.Program, error) {
			stored = p
			created := *p
			created.ID = 1
			return &created, nil
		},
	}
	svc := NewProgramService(repo, slog.Default())

	program, err := svc.Create(context.Background(), CreateProgramCommand{
		Name:        " Diabetes Care ",
		Description: ptr("Glucose monitoring"),
		CreatedBy:   ptr(int64(2)),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), program.ID)
	assert.Equal(t, "Diabetes Care", stored.Name)
	assert.Equal(t, models.ProgramActive, stored.Status)
	assert.Equal(t, int64(2), *stored.CreatedBy)
}

func TestProgramService_Create_Validation(t *testing.T) {
	svc := NewProgramService(&MockProgramRepository{}, slog.Default())

	tests := []struct {
		name string
		cmd  CreateProgramCommand
	}{
		{"short name", CreateProgramCommand{Name: "ab"}},
		{"long name", CreateProgramCommand{Name: strings.Repeat("x", 256)}},
		{"bad status", CreateProgramCommand{Name: "Diabetes Care", Status: "paused"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestProgramService_Update(t *testing.T) {
	var got models.ProgramUpdate
	repo := &MockProgramRepository{
		UpdateFunc: func(ctx context.Context, id int64, upd models.ProgramUpdate) (*models.Program, error) {
			got = upd
			return &models.Program{ID: id, Name: "Diabetes Care", Status: *upd.Status}, nil
		},
	}
	svc := NewProgramService(repo, slog.Default())

	program, err := svc.Update(context.Background(), 1, models.ProgramUpdate{Status: ptr(models.ProgramInactive)})

	require.NoError(t, err)
	assert.Equal(t, models.ProgramInactive, program.Status)
	assert.Nil(t, got.Name)

	_, err = svc.Update(context.Background(), 1, models.ProgramUpdate{Status: ptr(models.ProgramStatus("paused"))})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestProgramService_Get_NotFound(t *testing.T) {
	svc := NewProgramService(&MockProgramRepository{}, slog.Default())

	_, err := svc.Get(context.Background(), 9)

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, "program not found", err.Error())
}

func TestProgramService_Delete(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
		wantErr error
	}{
		{"deleted", nil, nil},
		{"missing", models.ErrNotFound, models.ErrNotFound},
		{"referenced", models.ErrStillReferenced, models.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockProgramRepository{
				DeleteFunc: func(ctx context.Context, id int64) error { return tt.repoErr },
			}
			svc := NewProgramService(repo, slog.Default())

			err := svc.Delete(context.Background(), 1)

			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
