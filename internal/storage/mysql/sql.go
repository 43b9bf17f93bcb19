package mysql

// -----------------------------------------------------------------------------
// ROOMS & INVENTORY
// -----------------------------------------------------------------------------

const roomColumns = `id, hotel_id, name, quantity, price_per_night`

const getRoomSQL = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`

const listRoomsSQL = `SELECT ` + roomColumns + ` FROM rooms ORDER BY id`

// Existing rows are left untouched; re-running is a no-op.
const ensureInventoryPrefix = "INSERT INTO room_inventory (room_id, night, total, booked)\nVALUES "

const ensureInventoryOnDup = " ON DUPLICATE KEY UPDATE room_id = room_id"

// Capacity never drops below what is already sold.
const resyncInventorySQL = `
UPDATE room_inventory
SET total = GREATEST(?, booked)
WHERE room_id = ? AND night >= ?
`

// Compare-and-set: succeeds only while a unit is left.
const incrementBookedSQL = `
UPDATE room_inventory
SET booked = booked + 1
WHERE room_id = ? AND night = ? AND booked < total
`

const decrementBookedSQL = `
UPDATE room_inventory
SET booked = GREATEST(booked - 1, 0)
WHERE room_id = ? AND night = ?
`

const inventoryRangePrefix = `
SELECT room_id, night, total, booked
FROM room_inventory
WHERE room_id = ? AND night IN (`

// -----------------------------------------------------------------------------
// BOOKINGS & PAYMENTS
// -----------------------------------------------------------------------------

const bookingColumns = `
  id, hotel_id, room_id, user_id, check_in, check_out, status, total_price,
  voucher_id, guest_name, guest_email, guest_phone, cancel_reason, created_at, updated_at`

const insertBookingSQL = `
INSERT INTO bookings
  (id, hotel_id, room_id, user_id, check_in, check_out, status, total_price,
   voucher_id, guest_name, guest_email, guest_phone, cancel_reason, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const getBookingSQL = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

const getBookingForUpdateSQL = getBookingSQL + ` FOR UPDATE`

const listBookingsByStatusPrefix = `SELECT ` + bookingColumns + ` FROM bookings WHERE status IN (`

const listBookingsByStatusSuffix = `) ORDER BY created_at, id`

// payment_code is a stored generated column: UPPER(RIGHT(id, 6)).
const findBookingsByCodeSQL = `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_code = ? ORDER BY created_at`

const updateBookingStatusSQL = `
UPDATE bookings
SET status = ?, cancel_reason = COALESCE(?, cancel_reason), updated_at = ?
WHERE id = ?
`

const paymentColumns = `booking_id, status, amount, method, provider_ref, paid_at`

const getPaymentSQL = `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = ?`

const getPaymentForUpdateSQL = getPaymentSQL + ` FOR UPDATE`

const upsertPaymentSQL = `
INSERT INTO payments
  (booking_id, status, amount, method, provider_ref, paid_at)
VALUES
  (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  status       = VALUES(status),
  amount       = VALUES(amount),
  method       = VALUES(method),
  provider_ref = VALUES(provider_ref),
  paid_at      = VALUES(paid_at)
`

// -----------------------------------------------------------------------------
// VOUCHERS
// -----------------------------------------------------------------------------

// code uses the column's case-insensitive collation so the unique index serves the lock.
const getVoucherByCodeForUpdateSQL = `
SELECT id, code, type, discount, min_spend, usage_limit, used_count, end_date
FROM vouchers
WHERE code = ?
FOR UPDATE
`

const incrementVoucherUsageSQL = `
UPDATE vouchers
SET used_count = used_count + 1
WHERE id = ? AND used_count < usage_limit
`

const decrementVoucherUsageSQL = `
UPDATE vouchers
SET used_count = GREATEST(used_count - 1, 0)
WHERE id = ?
`

// -----------------------------------------------------------------------------
// POLICY & LOYALTY
// -----------------------------------------------------------------------------

const getPolicySQL = `
SELECT id, check_in_time, check_out_time, cancellation_deadline_hours,
       refund_percent, refund_policy_text, service_fee_percent, tax_percent
FROM policies
WHERE id = ?
`

const upsertPolicySQL = `
INSERT INTO policies
  (id, check_in_time, check_out_time, cancellation_deadline_hours,
   refund_percent, refund_policy_text, service_fee_percent, tax_percent)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  check_in_time               = VALUES(check_in_time),
  check_out_time              = VALUES(check_out_time),
  cancellation_deadline_hours = VALUES(cancellation_deadline_hours),
  refund_percent              = VALUES(refund_percent),
  refund_policy_text          = VALUES(refund_policy_text),
  service_fee_percent         = VALUES(service_fee_percent),
  tax_percent                 = VALUES(tax_percent)
`

const getLoyaltySQL = `SELECT points FROM loyalty_accounts WHERE user_id = ?`

const addLoyaltySQL = `
INSERT INTO loyalty_accounts (user_id, points)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE points = points + VALUES(points)
`
