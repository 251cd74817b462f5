package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotel_booking/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- hotels ----

func (r *Repo) GetHotel(ctx context.Context, id int64) (domain.Hotel, error) {
	var h domain.Hotel
	err := r.db.QueryRowContext(ctx, getHotelSQL, id).
		Scan(&h.ID, &h.OwnerID, &h.Status, &h.TotalBookings, &h.TotalRevenue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Hotel{}, domain.ErrHotelNotFound
		}
		return domain.Hotel{}, err
	}
	if h.RoomTypes, err = r.roomTypes(ctx, h.ID); err != nil {
		return domain.Hotel{}, err
	}
	return h, nil
}

func (r *Repo) ListApprovedHotels(ctx context.Context) ([]domain.Hotel, error) {
	rows, err := r.db.QueryContext(ctx, listApprovedHotelsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Hotel
	for rows.Next() {
		var h domain.Hotel
		if err := rows.Scan(&h.ID, &h.OwnerID, &h.Status, &h.TotalBookings, &h.TotalRevenue); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].RoomTypes, err = r.roomTypes(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) roomTypes(ctx context.Context, hotelID int64) ([]domain.RoomType, error) {
	rows, err := r.db.QueryContext(ctx, listRoomTypesSQL, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RoomType
	for rows.Next() {
		var rt domain.RoomType
		if err := rows.Scan(&rt.Class, &rt.NightlyRate, &rt.TotalRooms, &rt.AvailableRooms); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// ---- admission ----

// InsertIfAvailable runs the §5 check-then-insert as one transaction:
// the room-type row lock serializes writers for the same hotel+class,
// the overlap count re-reads truth under that lock, and the insert only
// lands when capacity allows.
func (r *Repo) InsertIfAvailable(ctx context.Context, b domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var capacity int
	err = tx.QueryRowContext(ctx, lockRoomTypeSQL, b.HotelID, b.RoomClass).Scan(&capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrRoomTypeUnavailable
		}
		return err
	}

	var active int
	err = tx.QueryRowContext(ctx, countOverlappingSQL,
		b.HotelID, b.RoomClass, b.CheckOut, b.CheckIn).Scan(&active)
	if err != nil {
		return err
	}
	if active >= capacity {
		return domain.ErrNoAvailability
	}

	_, err = tx.ExecContext(ctx, insertBookingSQL,
		b.ID, b.UserID, b.HotelID, b.RoomClass,
		b.CheckIn, b.CheckOut, b.Guests,
		b.Details.Name, b.Details.Email, b.Details.Phone,
		b.Pricing.NightlyRate, b.Pricing.Nights, b.Pricing.RoomCost,
		b.Pricing.Taxes, b.Pricing.ServiceFee, b.Pricing.Discount, b.Pricing.Total,
		b.Payment.Method, b.Payment.IntentRef, string(b.Payment.Status),
		string(b.Status), b.CreatedAt,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repo) CountOverlapping(ctx context.Context, hotelID int64, class domain.RoomClass, checkIn, checkOut time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countOverlappingSQL, hotelID, class, checkOut, checkIn).Scan(&n)
	return n, err
}

func (r *Repo) CountActiveAt(ctx context.Context, hotelID int64, class domain.RoomClass, at time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countActiveAtSQL, hotelID, class, at, at).Scan(&n)
	return n, err
}

// ---- reads ----

func (r *Repo) Get(ctx context.Context, id string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, err
	}
	if b.Notifications, err = r.notifications(ctx, id); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *Repo) notifications(ctx context.Context, bookingID string) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, listNotificationsSQL, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.Type, &n.SentAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ---- transitions ----

func (r *Repo) Confirm(ctx context.Context, id, transactionID string, paidAt time.Time, loyaltyCredit int64) error {
	b, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, confirmBookingSQL, transactionID, paidAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// CAS missed: not in payment_pending anymore
		return domain.ErrInvalidTransition
	}

	// Side effects ride the same transaction, so a lost CAS can never
	// double-credit.
	if _, err := tx.ExecContext(ctx, bumpHotelCountersSQL, b.Pricing.Total, b.HotelID); err != nil {
		return err
	}
	if loyaltyCredit > 0 {
		if _, err := tx.ExecContext(ctx, creditLoyaltySQL, b.UserID, loyaltyCredit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) Cancel(ctx context.Context, id string, from domain.BookingStatus, c domain.Cancellation) error {
	res, err := r.db.ExecContext(ctx, cancelBookingSQL,
		c.CancelledAt, c.CancelledBy, c.Reason, c.RefundAmount, id, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *Repo) Transition(ctx context.Context, id string, from, to domain.BookingStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	res, err := r.db.ExecContext(ctx, transitionSQL, string(to), id, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *Repo) AppendNotification(ctx context.Context, bookingID, typ string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, appendNotificationSQL, bookingID, typ, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ---- sweeps ----

func (r *Repo) ListOverdueConfirmed(ctx context.Context, checkInBefore time.Time) ([]domain.Booking, error) {
	return r.list(ctx, listOverdueConfirmedSQL, checkInBefore)
}

func (r *Repo) ListReminderDue(ctx context.Context, checkInFrom, checkInTo time.Time) ([]domain.Booking, error) {
	return r.list(ctx, listReminderDueSQL, checkInFrom, checkInTo)
}

func (r *Repo) ListStalePending(ctx context.Context, createdBefore time.Time) ([]domain.Booking, error) {
	return r.list(ctx, listStalePendingSQL, createdBefore)
}

func (r *Repo) list(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) RevenueByHotel(ctx context.Context, from, to time.Time) ([]domain.RevenueSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, revenueByHotelSQL, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RevenueSnapshot
	for rows.Next() {
		var s domain.RevenueSnapshot
		if err := rows.Scan(&s.HotelID, &s.Bookings, &s.Revenue); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ---- scanning ----

type rowScanner interface{ Scan(dest ...any) error }

func scanBooking(row rowScanner) (domain.Booking, error) {
	var (
		b             domain.Booking
		txnID         sql.NullString
		paidAt        sql.NullTime
		cancelledAt   sql.NullTime
		cancelledBy   sql.NullString
		cancelReason  sql.NullString
		refundAmount  sql.NullInt64
		paymentStatus string
		status        string
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.HotelID, &b.RoomClass,
		&b.CheckIn, &b.CheckOut, &b.Guests,
		&b.Details.Name, &b.Details.Email, &b.Details.Phone,
		&b.Pricing.NightlyRate, &b.Pricing.Nights, &b.Pricing.RoomCost,
		&b.Pricing.Taxes, &b.Pricing.ServiceFee, &b.Pricing.Discount, &b.Pricing.Total,
		&b.Payment.Method, &b.Payment.IntentRef, &txnID, &paymentStatus, &paidAt,
		&status,
		&cancelledAt, &cancelledBy, &cancelReason, &refundAmount,
		&b.CreatedAt,
	)
	if err != nil {
		return domain.Booking{}, err
	}

	b.Payment.Status = domain.PaymentStatus(paymentStatus)
	b.Status = domain.BookingStatus(status)
	if txnID.Valid {
		b.Payment.TransactionID = txnID.String
	}
	if paidAt.Valid {
		t := paidAt.Time
		b.Payment.PaidAt = &t
	}
	if cancelledAt.Valid {
		b.Cancellation = &domain.Cancellation{
			CancelledAt:  cancelledAt.Time,
			CancelledBy:  cancelledBy.String,
			Reason:       cancelReason.String,
			RefundAmount: refundAmount.Int64,
		}
	}
	return b, nil
}
