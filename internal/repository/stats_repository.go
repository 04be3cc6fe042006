package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/turnomed/badge-engine/internal/models"
)

// statColumns is the closed set of counter columns Increment may touch.
// The StatField constants double as column names; anything outside this set
// is rejected before it reaches SQL.
var statColumns = map[models.StatField]bool{
	models.FieldTurnsCompleted:        true,
	models.FieldTurnsCancelled:        true,
	models.FieldTurnsNoShow:           true,
	models.FieldRatingsGiven:          true,
	models.FieldRatingsReceived:       true,
	models.FieldRatingPoints:          true,
	models.FieldDocumentationEntries:  true,
	models.FieldModifyRequestsHandled: true,
	models.FieldFilesUploaded:         true,
	models.FieldAdvanceBookings:       true,
	models.FieldAvailabilityConfigs:   true,
	models.FieldUniquePatients:        true,
	models.FieldPunctualityMentions:   true,
	models.FieldCommunicationMentions: true,
}

// Derived-column SQL, shared by RefreshDerived and Recompute. CASE/CAST
// keeps the expressions portable between PostgreSQL and the SQLite test
// databases.
const (
	cancellationRateExpr = `CASE WHEN total_turns_completed + total_turns_cancelled <= 0 THEN 0
		ELSE CAST(total_turns_cancelled AS REAL) / (total_turns_completed + total_turns_cancelled) END`
	noShowRateExpr = `CASE WHEN total_turns_completed + total_turns_no_show <= 0 THEN 0
		ELSE CAST(total_turns_no_show AS REAL) / (total_turns_completed + total_turns_no_show) END`
	averageRatingExpr = `CASE WHEN ratings_received <= 0 THEN 0
		ELSE CAST(rating_points AS REAL) / ratings_received END`
	documentationRateExpr = `CASE WHEN total_turns_completed <= 0 THEN 0
		WHEN documentation_entries >= total_turns_completed THEN 1.0
		ELSE CAST(documentation_entries AS REAL) / total_turns_completed END`
)

// StatsRepository maintains per-user aggregated statistics.
type StatsRepository struct {
	db *DB
}

// NewStatsRepository creates a new statistics repository.
func NewStatsRepository(db *DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// EnsureExists creates a zeroed statistics row for the user if none exists.
// Idempotent: a second call for the same user is a no-op.
func (r *StatsRepository) EnsureExists(userID uint, role models.Role) error {
	var count int64
	if err := r.db.Model(&models.UserStatistics{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check statistics row: %w", err)
	}
	if count > 0 {
		return nil
	}

	stats := &models.UserStatistics{UserID: userID, Role: role}
	if err := r.db.Create(stats).Error; err != nil {
		// A concurrent handler may have won the creation race; the unique
		// index on user_id rejects the second insert. Re-check before
		// treating it as a failure.
		var n int64
		if checkErr := r.db.Model(&models.UserStatistics{}).
			Where("user_id = ?", userID).
			Count(&n).Error; checkErr == nil && n > 0 {
			return nil
		}
		return fmt.Errorf("failed to create statistics row: %w", err)
	}
	return nil
}

// GetByUser retrieves the statistics row for a user.
// Returns models.ErrNotFound if the row does not exist.
func (r *StatsRepository) GetByUser(userID uint) (*models.UserStatistics, error) {
	var stats models.UserStatistics
	err := r.db.Where("user_id = ?", userID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("statistics for user %d: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Increment atomically adds delta to one counter column. The read-modify-
// write happens inside the database, so concurrent increments for the same
// user never lose updates. Returns models.ErrNotFound if the row is absent.
func (r *StatsRepository) Increment(userID uint, field models.StatField, delta int64) error {
	if !statColumns[field] {
		return fmt.Errorf("unknown statistics field %q", field)
	}

	col := string(field)
	res := r.db.Model(&models.UserStatistics{}).
		Where("user_id = ?", userID).
		UpdateColumn(col, gorm.Expr(col+" + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("failed to increment %s: %w", col, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("statistics for user %d: %w", userID, models.ErrNotFound)
	}
	return nil
}

// RefreshDerived recomputes the rate and average columns from the counters
// in a single UPDATE, so a reader never sees rates computed from a
// different counter generation.
func (r *StatsRepository) RefreshDerived(userID uint) error {
	res := r.db.Model(&models.UserStatistics{}).
		Where("user_id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"cancellation_rate":  gorm.Expr(cancellationRateExpr),
			"no_show_rate":       gorm.Expr(noShowRateExpr),
			"average_rating":     gorm.Expr(averageRatingExpr),
			"documentation_rate": gorm.Expr(documentationRateExpr),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to refresh derived statistics: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("statistics for user %d: %w", userID, models.ErrNotFound)
	}
	return nil
}

// Recompute rebuilds every counter that has backing history (turns,
// ratings) plus all derived columns. Counters with no backing history
// (files uploaded, modification requests, availability configurations) are
// preserved as-is. This is the drift-correction path for the bounded
// rolling mention windows, which the incremental path only approximates.
func (r *StatsRepository) Recompute(userID uint) error {
	var user models.User
	err := r.db.First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	if err := r.EnsureExists(userID, user.Role); err != nil {
		return err
	}

	turnCols, err := r.recomputeTurns(userID, user.Role)
	if err != nil {
		return err
	}
	ratingCols, err := r.recomputeRatings(userID)
	if err != nil {
		return err
	}

	cols := make(map[string]interface{}, len(turnCols)+len(ratingCols)+4)
	for k, v := range turnCols {
		cols[k] = v
	}
	for k, v := range ratingCols {
		cols[k] = v
	}
	cols["cancellation_rate"] = gorm.Expr(cancellationRateExpr)
	cols["no_show_rate"] = gorm.Expr(noShowRateExpr)
	cols["average_rating"] = gorm.Expr(averageRatingExpr)
	cols["documentation_rate"] = gorm.Expr(documentationRateExpr)

	// Counters first, then the derived expressions read the fresh values.
	res := r.db.Model(&models.UserStatistics{}).
		Where("user_id = ?", userID).
		UpdateColumns(cols)
	if res.Error != nil {
		return fmt.Errorf("failed to store recomputed statistics: %w", res.Error)
	}
	return nil
}

// recomputeTurns rebuilds the turn-derived counter columns.
func (r *StatsRepository) recomputeTurns(userID uint, role models.Role) (map[string]interface{}, error) {
	sideCol := "patient_id"
	if role == models.RoleDoctor {
		sideCol = "doctor_id"
	}

	countByStatus := func(status string) (int64, error) {
		var n int64
		err := r.db.Model(&models.Turn{}).
			Where(sideCol+" = ? AND status = ?", userID, status).
			Count(&n).Error
		return n, err
	}

	completed, err := countByStatus(models.TurnStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed turns: %w", err)
	}
	cancelled, err := countByStatus(models.TurnStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to count cancelled turns: %w", err)
	}
	noShow, err := countByStatus(models.TurnStatusNoShow)
	if err != nil {
		return nil, fmt.Errorf("failed to count no-show turns: %w", err)
	}

	cols := map[string]interface{}{
		"total_turns_completed": completed,
		"total_turns_cancelled": cancelled,
		"total_turns_no_show":   noShow,
	}

	if role == models.RoleDoctor {
		var documented int64
		if err := r.db.Model(&models.Turn{}).
			Where("doctor_id = ? AND status = ? AND documented = ?", userID, models.TurnStatusCompleted, true).
			Count(&documented).Error; err != nil {
			return nil, fmt.Errorf("failed to count documented turns: %w", err)
		}
		cols["documentation_entries"] = documented

		var uniquePatients int64
		if err := r.db.Model(&models.Turn{}).
			Where("doctor_id = ? AND status = ?", userID, models.TurnStatusCompleted).
			Distinct("patient_id").
			Count(&uniquePatients).Error; err != nil {
			return nil, fmt.Errorf("failed to count unique patients: %w", err)
		}
		cols["unique_patients"] = uniquePatients
	}

	if role == models.RolePatient {
		var turns []models.Turn
		if err := r.db.
			Select("scheduled_at", "booked_at").
			Where("patient_id = ?", userID).
			Find(&turns).Error; err != nil {
			return nil, fmt.Errorf("failed to load turns for advance bookings: %w", err)
		}
		var advance int64
		for i := range turns {
			if turns[i].IsAdvanceBooking() {
				advance++
			}
		}
		cols["advance_bookings"] = advance
	}

	return cols, nil
}

// recomputeRatings rebuilds the rating-derived counter columns, including
// the exact bounded mention windows over the last RatingWindow ratings.
func (r *StatsRepository) recomputeRatings(userID uint) (map[string]interface{}, error) {
	var received, given, points int64
	if err := r.db.Model(&models.Rating{}).
		Where("to_user_id = ?", userID).
		Count(&received).Error; err != nil {
		return nil, fmt.Errorf("failed to count received ratings: %w", err)
	}
	if err := r.db.Model(&models.Rating{}).
		Where("from_user_id = ?", userID).
		Count(&given).Error; err != nil {
		return nil, fmt.Errorf("failed to count given ratings: %w", err)
	}

	var sum struct{ Total int64 }
	if err := r.db.Model(&models.Rating{}).
		Select("COALESCE(SUM(score), 0) AS total").
		Where("to_user_id = ?", userID).
		Scan(&sum).Error; err != nil {
		return nil, fmt.Errorf("failed to sum received ratings: %w", err)
	}
	points = sum.Total

	// Exact rolling window: the most recent RatingWindow received ratings.
	var window []models.Rating
	if err := r.db.
		Select("mentions_punctuality", "mentions_communication").
		Where("to_user_id = ?", userID).
		Order("created_at DESC").
		Limit(models.RatingWindow).
		Find(&window).Error; err != nil {
		return nil, fmt.Errorf("failed to load rating window: %w", err)
	}

	var punctuality, communication int64
	for i := range window {
		if window[i].MentionsPunctuality {
			punctuality++
		}
		if window[i].MentionsCommunication {
			communication++
		}
	}

	return map[string]interface{}{
		"ratings_received":       received,
		"ratings_given":          given,
		"rating_points":          points,
		"punctuality_mentions":   punctuality,
		"communication_mentions": communication,
	}, nil
}

// PeerAverageRatings returns the average rating of every doctor of the
// given specialty with at least minTurns completed turns. Used to build
// the percentile candidate population.
func (r *StatsRepository) PeerAverageRatings(specialty string, minTurns int64) ([]float64, error) {
	var scores []float64
	err := r.db.Model(&models.UserStatistics{}).
		Joins("JOIN users ON users.id = user_statistics.user_id").
		Where("users.role = ? AND users.specialty = ?", models.RoleDoctor, specialty).
		Where("user_statistics.total_turns_completed >= ?", minTurns).
		Pluck("user_statistics.average_rating", &scores).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load peer ratings: %w", err)
	}
	return scores, nil
}
