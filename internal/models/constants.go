package models

const (
	// DialogMainMenu loops forever; every child dialog returns here.
	DialogMainMenu = "mainMenu"
	// DialogBookCourier is the booking wizard.
	DialogBookCourier = "bookCourier"
	// DialogCheckStatus is the status-check wizard.
	DialogCheckStatus = "checkCourierStatus"
)

const (
	PromptText           = "textPrompt"
	PromptNumber         = "numberPrompt"
	PromptChoice         = "choicePrompt"
	PromptDateTime       = "dateTimePrompt"
	PromptCustomerNumber = "customerNumberPrompt"
	PromptEmail          = "emailPrompt"
)

const (
	// DefaultStateTTL lifetime of a suspended conversation in Redis, seconds
	DefaultStateTTL = 24 * 60 * 60

	// MinCustomerNumber lower bound of valid customer numbers
	MinCustomerNumber = 1000

	// DefaultCancelKeyword empties the dialog stack when uttered
	DefaultCancelKeyword = "cancel"

	// RateLimitMessages messages allowed per window
	RateLimitMessages = 20

	// RateLimitWindow rate limit window, seconds
	RateLimitWindow = 60

	// WorkerQueueSize notification worker queue size
	WorkerQueueSize = 128
)
