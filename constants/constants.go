package constants

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
)

const (
	ORDER_STATUS_PENDING   = "pending"
	ORDER_STATUS_CONFIRMED = "confirmed"
	ORDER_STATUS_CANCELLED = "cancelled"
	ORDER_STATUS_COMPLETED = "completed"
)

var ORDER_STATUSES = []string{
	ORDER_STATUS_PENDING,
	ORDER_STATUS_CONFIRMED,
	ORDER_STATUS_CANCELLED,
	ORDER_STATUS_COMPLETED,
}

const (
	PAYMENT_CASH = "cash"
	PAYMENT_UPI  = "upi"
)

// Largest accepted difference between totalAmount and the sum of line totals.
const TOTAL_EPSILON = 0.01

const (
	ERROR_INTERNAL_ERROR        = "Internal server error"
	ERROR_INPUT                 = "Invalid input"
	ERROR_VALIDATION            = "Validation failed"
	ERROR_PARSE_DATA_TO_LOCALS  = "Failed to read validated input"
	ERROR_CREATE                = "Failed to create record"
	ERROR_UPDATE                = "Failed to update record"
	ERROR_STORAGE_UNAVAILABLE   = "Storage is temporarily unavailable, please retry later"
	ERROR_TOTAL_MISMATCH        = "Total amount does not match order items"
	ERROR_UPI_DETAILS_REQUIRED  = "UPI ID and transaction ID are required for UPI payments"
	ERROR_ORDER_NUMBER_CONFLICT = "Order number conflict, please retry"
	ERROR_EMAIL_SEND            = "Failed to send email"
	ERROR_EMAIL_DISABLED        = "Email delivery is not configured"

	NOT_FOUND_ORDER       = "Order not found"
	INVALID_STATUS        = "Invalid order status"
	INVALID_TRANSITION    = "Order status transition not allowed"
	CAN_NOT_HASH_PASSWORD = "Can not hash password"

	MISSING_TOKEN       = "Missing token"
	INVALID_TOKEN       = "Invalid or expired token"
	MISSING_LOGIN_INPUT = "Email and password are required"
	INVALID_CREDENTIALS = "Invalid email or password"
	ACCOUNT_NOT_ACTIVE  = "Account is not active"
	ACCOUNT_NOT_FOUND   = "Account not found"
	EMAIL_EXISTS        = "Email already registered"
	NOT_PERMISSION      = "You do not have permission to perform this action"
	TOO_MANY_REQUESTS   = "Too many requests, please try again later"
)
