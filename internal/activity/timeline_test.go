package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timelineFixture() *fixtureSource {
	return &fixtureSource{
		students: map[int64]StudentProfile{
			1: {ID: 1, Name: "Ana Souza", CPF: "111.222.333-44", IsNeurodivergent: true},
		},
		attendance: []AttendanceRecord{
			{ID: 10, StudentID: 1, ClassID: 3, Status: "presente", OccurredAt: ts("2024-03-01T08:00:00Z"), TeacherName: strPtr("Prof. Carla")},
		},
		justifications: []JustificationRecord{
			{ID: 20, StudentID: 1, CreatedAt: ts("2024-03-02T09:00:00Z"), Reason: "Consulta médica", Approved: boolPtr(true)},
		},
		warnings: []WarningRecord{
			{ID: 30, StudentID: 1, CreatedAt: ts("2024-02-20T10:00:00Z"), Description: "Atraso recorrente"},
		},
	}
}

func TestTimelineMergesDescending(t *testing.T) {
	svc := NewService(timelineFixture())

	res, err := svc.Timeline(context.Background(), 1, TimelineOptions{})
	require.NoError(t, err)

	require.Equal(t, 3, res.Total)
	assert.Equal(t, StudentSummary{ID: 1, Name: "Ana Souza", CPF: "111.222.333-44", IsNeurodivergent: true}, res.Student)

	assert.Equal(t, KindJustification, res.Events[0].Kind)
	assert.Equal(t, int64(20), res.Events[0].ID)
	assert.Equal(t, KindAttendance, res.Events[1].Kind)
	assert.Equal(t, int64(10), res.Events[1].ID)
	assert.Equal(t, KindWarning, res.Events[2].Kind)
	assert.Equal(t, int64(30), res.Events[2].ID)

	for i := 0; i < len(res.Events)-1; i++ {
		assert.False(t, res.Events[i].OccurredAt.Before(res.Events[i+1].OccurredAt),
			"events must be sorted by timestamp descending")
	}
}

func TestTimelineDescriptions(t *testing.T) {
	src := timelineFixture()
	src.attendance = []AttendanceRecord{
		{ID: 11, StudentID: 1, ClassID: 3, Status: "presente", OccurredAt: ts("2024-03-03T08:00:00Z")},
		{ID: 12, StudentID: 1, ClassID: 3, Status: "ATRASO", OccurredAt: ts("2024-03-02T08:00:00Z")},
		{ID: 13, StudentID: 1, ClassID: 3, Status: "ausente", OccurredAt: ts("2024-03-01T08:00:00Z")},
	}
	svc := NewService(src)

	res, err := svc.Timeline(context.Background(), 1, TimelineOptions{Kinds: []Kind{KindAttendance}})
	require.NoError(t, err)
	require.Equal(t, 3, res.Total)

	assert.Equal(t, "Presença registrada", res.Events[0].Description)
	assert.Equal(t, "Atraso registrado", res.Events[1].Description)
	assert.Equal(t, "Falta registrada", res.Events[2].Description)

	details, ok := res.Events[1].Details.(AttendanceDetails)
	require.True(t, ok)
	assert.Equal(t, StatusLate, details.Status)
	assert.Equal(t, int64(3), details.ClassID)
}

func TestTimelineJustificationAndWarningVerbatim(t *testing.T) {
	svc := NewService(timelineFixture())

	res, err := svc.Timeline(context.Background(), 1, TimelineOptions{
		Kinds: []Kind{KindJustification, KindWarning},
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)

	assert.Equal(t, "Consulta médica", res.Events[0].Description)
	details, ok := res.Events[0].Details.(JustificationDetails)
	require.True(t, ok)
	assert.Equal(t, ApprovalApproved, details.Approval)

	assert.Equal(t, "Atraso recorrente", res.Events[1].Description)
	assert.Nil(t, res.Events[1].Details)
}

func TestTimelineKindsFilter(t *testing.T) {
	svc := NewService(timelineFixture())

	res, err := svc.Timeline(context.Background(), 1, TimelineOptions{Kinds: []Kind{KindWarning}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, KindWarning, res.Events[0].Kind)
}

func TestTimelineDateRange(t *testing.T) {
	svc := NewService(timelineFixture())

	from := ts("2024-03-01T00:00:00Z")
	res, err := svc.Timeline(context.Background(), 1, TimelineOptions{
		Range: DateRange{From: &from},
	})
	require.NoError(t, err)
	// the warning predates the lower bound
	require.Equal(t, 2, res.Total)
	assert.Equal(t, KindJustification, res.Events[0].Kind)
	assert.Equal(t, KindAttendance, res.Events[1].Kind)
}

func TestTimelineOccurredAtFallsBackToCreatedAt(t *testing.T) {
	src := timelineFixture()
	src.attendance = []AttendanceRecord{
		{ID: 14, StudentID: 1, ClassID: 3, Status: "presente", CreatedAt: ts("2024-03-05T07:30:00Z")},
	}
	svc := NewService(src)

	res, err := svc.Timeline(context.Background(), 1, TimelineOptions{Kinds: []Kind{KindAttendance}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, ts("2024-03-05T07:30:00Z"), res.Events[0].OccurredAt)
}

func TestTimelineStudentNotFound(t *testing.T) {
	svc := NewService(timelineFixture())

	_, err := svc.Timeline(context.Background(), 999, TimelineOptions{})
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestTimelineInvalidInput(t *testing.T) {
	svc := NewService(timelineFixture())

	_, err := svc.Timeline(context.Background(), 0, TimelineOptions{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	from := ts("2024-03-10T00:00:00Z")
	to := ts("2024-03-01T00:00:00Z")
	_, err = svc.Timeline(context.Background(), 1, TimelineOptions{Range: DateRange{From: &from, To: &to}})
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestTimelineFailsFastOnSourceError(t *testing.T) {
	src := timelineFixture()
	src.warningErr = errors.New("connection refused")
	svc := NewService(src)

	_, err := svc.Timeline(context.Background(), 1, TimelineOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestTimelineBestEffortSkipsFailedKind(t *testing.T) {
	src := timelineFixture()
	src.warningErr = errors.New("connection refused")
	svc := NewService(src)

	res, err := svc.Timeline(context.Background(), 1, TimelineOptions{BestEffort: true})
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	for _, evt := range res.Events {
		assert.NotEqual(t, KindWarning, evt.Kind)
	}
}

func TestTimelineBestEffortStillFailsOnProfileError(t *testing.T) {
	src := timelineFixture()
	src.studentErr = errors.New("connection refused")
	svc := NewService(src)

	_, err := svc.Timeline(context.Background(), 1, TimelineOptions{BestEffort: true})
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestTimelineIdempotent(t *testing.T) {
	svc := NewService(timelineFixture())

	first, err := svc.Timeline(context.Background(), 1, TimelineOptions{})
	require.NoError(t, err)
	second, err := svc.Timeline(context.Background(), 1, TimelineOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
