package types

// ToastLevel is the severity of a transient notification.
type ToastLevel string

const (
	ToastSuccess ToastLevel = "success"
	ToastInfo    ToastLevel = "info"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

// Toast is a transient user-facing notification.
type Toast struct {
	Level   ToastLevel `json:"level"`
	Message string     `json:"message"`
	// Link is an optional URL shown below the message.
	Link string `json:"link,omitempty"`
}
