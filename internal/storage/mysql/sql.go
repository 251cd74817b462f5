package mysql

// -----------------------------------------------------------------------------
// ADMISSION (inside a transaction; see Repo.InsertIfAvailable)
// -----------------------------------------------------------------------------

// Locks the room-type row for the duration of the transaction, which
// serializes concurrent check-then-insert sequences for the same
// (hotel, room class).
const lockRoomTypeSQL = `
SELECT total_rooms
FROM room_types
WHERE hotel_id = ? AND class = ?
FOR UPDATE
`

// Half-open overlap: existing.check_in < new.check_out AND
// existing.check_out > new.check_in. payment_pending rows hold a unit
// until confirmed or expired, so concurrent creates cannot oversell
// the window between create and payment.
const countOverlappingSQL = `
SELECT COUNT(*)
FROM bookings
WHERE hotel_id = ?
  AND room_class = ?
  AND status IN ('payment_pending', 'confirmed', 'checked_in')
  AND check_in < ?
  AND check_out > ?
`

const insertBookingSQL = `
INSERT INTO bookings
  (id, user_id, hotel_id, room_class, check_in, check_out, guests,
   guest_name, guest_email, guest_phone,
   nightly_rate, nights, room_cost, taxes, service_fee, discount, total,
   payment_method, payment_intent_ref, payment_status,
   status, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// STATE TRANSITIONS (all compare-and-swap on current status)
// -----------------------------------------------------------------------------

const confirmBookingSQL = `
UPDATE bookings
SET status = 'confirmed',
    payment_status = 'completed',
    transaction_id = ?,
    paid_at = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = 'payment_pending'
`

const bumpHotelCountersSQL = `
UPDATE hotels
SET total_bookings = total_bookings + 1,
    total_revenue  = total_revenue + ?
WHERE id = ?
`

const creditLoyaltySQL = `
INSERT INTO loyalty_points (user_id, points)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE points = points + VALUES(points)
`

const cancelBookingSQL = `
UPDATE bookings
SET status = 'cancelled',
    cancelled_at = ?,
    cancelled_by = ?,
    cancel_reason = ?,
    refund_amount = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = ?
`

const transitionSQL = `
UPDATE bookings
SET status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = ?
`

// The PRIMARY KEY (booking_id, type) makes the append idempotent;
// INSERT IGNORE reports 0 rows when the entry already exists.
const appendNotificationSQL = `
INSERT IGNORE INTO booking_notifications (booking_id, type, sent_at)
VALUES (?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const bookingColumns = `
  b.id, b.user_id, b.hotel_id, b.room_class,
  b.check_in, b.check_out, b.guests,
  b.guest_name, b.guest_email, b.guest_phone,
  b.nightly_rate, b.nights, b.room_cost, b.taxes, b.service_fee, b.discount, b.total,
  b.payment_method, b.payment_intent_ref, b.transaction_id, b.payment_status, b.paid_at,
  b.status,
  b.cancelled_at, b.cancelled_by, b.cancel_reason, b.refund_amount,
  b.created_at`

const getBookingSQL = `
SELECT` + bookingColumns + `
FROM bookings b
WHERE b.id = ?
`

const listNotificationsSQL = `
SELECT type, sent_at
FROM booking_notifications
WHERE booking_id = ?
ORDER BY sent_at
`

const countActiveAtSQL = `
SELECT COUNT(*)
FROM bookings
WHERE hotel_id = ?
  AND room_class = ?
  AND status IN ('confirmed', 'checked_in')
  AND check_in <= ?
  AND check_out > ?
`

const listOverdueConfirmedSQL = `
SELECT` + bookingColumns + `
FROM bookings b
WHERE b.status = 'confirmed' AND b.check_in < ?
`

// Left-join against the notification log so a booking drops out of the
// due list the moment its reminder is recorded.
const listReminderDueSQL = `
SELECT` + bookingColumns + `
FROM bookings b
LEFT JOIN booking_notifications n
  ON n.booking_id = b.id AND n.type = 'check_in_reminder'
WHERE b.status = 'confirmed'
  AND b.check_in >= ?
  AND b.check_in < ?
  AND n.booking_id IS NULL
`

const listStalePendingSQL = `
SELECT` + bookingColumns + `
FROM bookings b
WHERE b.status = 'payment_pending' AND b.created_at < ?
`

const revenueByHotelSQL = `
SELECT hotel_id, COUNT(*), COALESCE(SUM(total), 0)
FROM bookings
WHERE payment_status = 'completed'
  AND created_at >= ?
  AND created_at < ?
GROUP BY hotel_id
`

const getHotelSQL = `
SELECT id, owner_id, status, total_bookings, total_revenue
FROM hotels
WHERE id = ?
`

const listApprovedHotelsSQL = `
SELECT id, owner_id, status, total_bookings, total_revenue
FROM hotels
WHERE status = 'approved'
ORDER BY id
`

const listRoomTypesSQL = `
SELECT class, nightly_rate, total_rooms, available_rooms
FROM room_types
WHERE hotel_id = ?
ORDER BY class
`
