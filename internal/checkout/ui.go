package checkout

// Screen is the top-level view the checkout renders into.
type Screen string

const (
	ScreenLoading    Screen = "loading"
	ScreenCheckout   Screen = "checkout"
	ScreenProcessing Screen = "processing"
	ScreenSuccess    Screen = "success"
	ScreenError      Screen = "error"
)

// ReceiverField is one labeled value shown for receiver flows, such as a
// bank account number or a payment reference.
type ReceiverField struct {
	Label string
	Value string
}

// UI is the rendering sink the checkout drives. Implementations are thin:
// they translate these calls into whatever surface hosts the checkout and
// never make decisions of their own.
type UI interface {
	ShowScreen(screen Screen)
	SetSubmitLabel(label string)
	SetSubmitEnabled(enabled bool)

	// ShowNote updates the inline note shown to the customer, such as the
	// receipt confirmation or a retry prompt.
	ShowNote(note string)
	// ShowErrorMessage renders the error screen reason.
	ShowErrorMessage(message string)
	// ShowTimeoutNotice reports that the payment outcome is still unknown.
	// It is distinct from ShowErrorMessage: a timed-out poll is not a
	// failed payment.
	ShowTimeoutNotice(message string)

	// ShowReceiverInstructions renders transfer details for receiver flows.
	ShowReceiverInstructions(fields []ReceiverField)
	// ShowQRCode renders a scannable payload for QR flows.
	ShowQRCode(payload, label string)
	// Redirect navigates the customer to the provider-hosted page.
	Redirect(url string)
}
