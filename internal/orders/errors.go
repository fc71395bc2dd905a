package orders

import "fmt"

// Kind classifies checkout failures.
type Kind string

const (
	// KindIncompleteData: details, line items or required customer fields are missing.
	KindIncompleteData Kind = "incomplete_data"
	// KindZeroAmount: the submitted total is not strictly positive.
	KindZeroAmount Kind = "zero_amount"
	// KindInProgress: another submission from the same user is still running.
	KindInProgress Kind = "in_progress"
	// KindSequencingFailure: no order number could be reserved.
	KindSequencingFailure Kind = "sequencing_failure"
	// KindNotificationFailure: a notification channel failed; the order still completes.
	KindNotificationFailure Kind = "notification_failure"
	// KindUnexpectedFailure: a panic or an error outside the known taxonomy.
	KindUnexpectedFailure Kind = "unexpected_failure"
)

var userMessages = map[Kind]string{
	KindIncompleteData:    "Some order details are missing. Please fill in your name, phone and delivery details and try again.",
	KindZeroAmount:        "Your order total is zero. Please add products to the cart before checking out.",
	KindInProgress:        "Your order is already being processed, please wait a moment.",
	KindSequencingFailure: "We could not register your order right now. Please try again in a minute.",
	KindUnexpectedFailure: "Something went wrong while placing your order. Please try again later.",
}

// CheckoutError is a classified checkout failure. Reason is for logs only;
// users see UserMessage.
type CheckoutError struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *CheckoutError) Error() string {
	msg := "checkout " + string(e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CheckoutError) Unwrap() error { return e.Err }

// Code exposes the kind as a stable log error code.
func (e *CheckoutError) Code() string { return string(e.Kind) }

// UserMessage is the text shown to the customer.
func (e *CheckoutError) UserMessage() string {
	if msg, ok := userMessages[e.Kind]; ok {
		return msg
	}
	return userMessages[KindUnexpectedFailure]
}

func newError(kind Kind, format string, args ...any) *CheckoutError {
	return &CheckoutError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
