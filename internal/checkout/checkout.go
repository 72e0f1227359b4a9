package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pmartell/storefront-checkout/pkg/errors"
	"github.com/pmartell/storefront-checkout/pkg/logger"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

// State is the checkout's top-level position in its lifecycle.
type State string

const (
	StateLoading    State = "loading"
	StateCheckout   State = "checkout"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

const (
	noteReceiptSent    = "We just sent your receipt to your email address, and your items will be on their way shortly."
	notePaymentPending = "We'll send your receipt and ship your items as soon as your payment is confirmed."
	noteRetry          = "Something went wrong on our side. Your card was not charged, please try again."
	noteTimeout        = "We have not received confirmation of your payment yet. Check back later or contact us."
	msgCanceled        = "Your payment was canceled."

	statementDescriptor = "Storefront Checkout"
)

// ResumeParams carries the URL parameters a redirect flow returns with.
type ResumeParams struct {
	SourceID        string
	ClientSecret    string
	PaymentIntentID string
}

type Params struct {
	Session *Session
	API     *Client
	SDK     PaymentSDK
	UI      UI
	Logger  *logger.Logger

	// ReturnURL is where redirect flows send the customer back to.
	ReturnURL string

	// PollInterval overrides the status poll cadence. Zero keeps the
	// default.
	PollInterval time.Duration
}

// Checkout reconciles the customer-visible checkout state with the intent
// state held by the provider. All rendering goes through the UI sink; all
// state questions go to the server or the payment SDK.
type Checkout struct {
	session   *Session
	api       *Client
	sdk       PaymentSDK
	ui        UI
	logger    *logger.Logger
	returnURL string

	pollInterval time.Duration

	mu         sync.Mutex
	state      State
	submitting bool
	intent     *stripe.PaymentIntent
	poller     *Poller
}

func New(params Params) (*Checkout, error) {
	if params.Session == nil {
		return nil, errors.New(errors.CodeInternal, "checkout requires a session")
	}
	if params.API == nil {
		return nil, errors.New(errors.CodeInternal, "checkout requires a server client")
	}
	if params.SDK == nil {
		return nil, errors.New(errors.CodeInternal, "checkout requires a payment sdk")
	}
	if params.UI == nil {
		return nil, errors.New(errors.CodeInternal, "checkout requires a ui sink")
	}
	return &Checkout{
		session:      params.Session,
		api:          params.API,
		sdk:          params.SDK,
		ui:           params.UI,
		logger:       params.Logger,
		returnURL:    params.ReturnURL,
		pollInterval: params.PollInterval,
		state:        StateLoading,
	}, nil
}

func (c *Checkout) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Checkout) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// Start loads the session and either resumes a prior payment from the URL
// parameters or opens a fresh intent and shows the checkout form.
func (c *Checkout) Start(ctx context.Context, resume ResumeParams) error {
	c.ui.ShowScreen(ScreenLoading)
	if err := c.session.Load(ctx); err != nil {
		return err
	}

	switch {
	case resume.SourceID != "" && resume.ClientSecret != "":
		source, err := c.sdk.RetrieveSource(ctx, resume.SourceID, resume.ClientSecret)
		if err != nil {
			return err
		}
		intentID := source.OwningIntentID()
		if intentID == "" {
			return errors.New(errors.CodeValidation, "returned source carries no intent metadata")
		}
		c.enterProcessing(ctx, intentID, DefaultPollTimeout)
		return nil

	case resume.PaymentIntentID != "":
		c.enterProcessing(ctx, resume.PaymentIntentID, DefaultPollTimeout)
		return nil
	}

	snapshot := c.session.Snapshot()
	intent, err := c.api.CreatePaymentIntent(ctx, snapshot.Currency, c.session.CartLines())
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.intent = intent
	c.state = StateCheckout
	c.mu.Unlock()

	c.ui.ShowScreen(ScreenCheckout)
	c.updateSubmitLabel()
	return nil
}

// SelectMethod records the chosen payment method and refreshes the submit
// affordance for it.
func (c *Checkout) SelectMethod(methodID string) error {
	if err := c.session.SelectMethod(methodID); err != nil {
		return err
	}
	c.updateSubmitLabel()
	return nil
}

// SelectShipping re-prices the intent with the chosen shipping option and
// updates the displayed total.
func (c *Checkout) SelectShipping(ctx context.Context, shippingOptionID string) error {
	c.mu.Lock()
	intent := c.intent
	c.mu.Unlock()
	if intent == nil {
		return errors.New(errors.CodePrecondition, "no payment intent to update")
	}

	updated, err := c.api.ApplyShipping(ctx, intent.ID, c.session.CartLines(), shippingOptionID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.intent = updated
	c.mu.Unlock()

	c.ui.SetSubmitLabel(fmt.Sprintf("Pay %s", c.session.FormatAmount(updated.Amount)))
	return nil
}

// Submit runs one payment attempt for the collected details. Only one
// submission may be in flight; re-entry while processing is ignored.
func (c *Checkout) Submit(ctx context.Context, details PaymentDetails) error {
	c.mu.Lock()
	if c.submitting || c.intent == nil {
		c.mu.Unlock()
		return nil
	}
	c.submitting = true
	intent := c.intent
	c.state = StateProcessing
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	c.ui.SetSubmitEnabled(false)
	c.ui.ShowScreen(ScreenProcessing)

	method, ok := MethodByID(details.Method)
	if !ok {
		err := errors.New(errors.CodeValidation, "unknown payment method")
		c.submitFailed(err)
		return err
	}

	switch method.Flow {
	case FlowImmediate:
		confirmed, err := c.sdk.ConfirmPaymentMethod(ctx, intent.ClientSecret, details)
		if err != nil {
			c.submitFailed(err)
			return nil
		}
		c.renderPayment(confirmed)
		return nil

	default:
		source, err := c.sdk.CreateSource(ctx, c.sourceParams(method, intent, details))
		if err != nil {
			c.submitFailed(err)
			return nil
		}
		c.activateSource(ctx, method, intent, source)
		return nil
	}
}

// Teardown stops any outstanding poll. Called when the customer navigates
// away so no timers outlive the checkout.
func (c *Checkout) Teardown() {
	c.mu.Lock()
	poller := c.poller
	c.mu.Unlock()
	if poller != nil {
		poller.Stop()
	}
}

func (c *Checkout) sourceParams(method Method, intent *stripe.PaymentIntent, details PaymentDetails) stripe.SourceCreateParams {
	params := stripe.SourceCreateParams{
		Type:                method.ID,
		Amount:              intent.Amount,
		Currency:            intent.Currency,
		OwnerName:           details.Name,
		OwnerEmail:          details.Email,
		RedirectReturnURL:   c.returnURL,
		StatementDescriptor: statementDescriptor,
		Metadata:            map[string]string{stripe.MetadataIntentKey: intent.ID},
	}
	switch method.ID {
	case "sofort":
		// The bank needs the customer country before the redirect.
		params.SofortCountry = details.Country
	case "ach_credit_transfer":
		// Test-mode convention: the owner email controls how much the
		// simulated transfer delivers.
		params.OwnerEmail = fmt.Sprintf("amount_%d@example.com", intent.Amount)
	}
	return params
}

func (c *Checkout) activateSource(ctx context.Context, method Method, intent *stripe.PaymentIntent, source *stripe.Source) {
	switch method.Flow {
	case FlowRedirect:
		if source.Redirect == nil || source.Redirect.URL == "" {
			c.submitFailed(errors.New(errors.CodeProvider, "redirect source carries no redirect url"))
			return
		}
		c.ui.SetSubmitLabel("Redirecting…")
		c.ui.Redirect(source.Redirect.URL)

	case FlowReceiver:
		c.setState(StateProcessing)
		c.ui.ShowReceiverInstructions(c.receiverFields(source))
		c.startPolling(ctx, intent.ID, DefaultPollTimeout)

	case FlowPolling:
		if source.WeChat == nil || source.WeChat.QRCodeURL == "" {
			c.submitFailed(errors.New(errors.CodeProvider, "qr source carries no code payload"))
			return
		}
		amount := c.session.FormatAmount(intent.Amount)
		c.ui.ShowQRCode(source.WeChat.QRCodeURL, fmt.Sprintf("Scan this QR code on %s to pay %s", method.Name, amount))
		c.startPolling(ctx, intent.ID, QRPollTimeout)

	default:
		if c.logger != nil {
			c.logger.Warn(c.logger.WithField(ctx, "source", source.ID), "unhandled source flow")
		}
	}
}

func (c *Checkout) receiverFields(source *stripe.Source) []ReceiverField {
	amount := c.session.FormatAmount(source.Amount)
	switch {
	case source.ACHCreditTransfer != nil:
		ach := source.ACHCreditTransfer
		return []ReceiverField{
			{Label: "Amount", Value: amount},
			{Label: "Bank Name", Value: ach.BankName},
			{Label: "Account Number", Value: ach.AccountNumber},
			{Label: "Routing Number", Value: ach.RoutingNumber},
		}
	case source.Multibanco != nil:
		mb := source.Multibanco
		return []ReceiverField{
			{Label: "Amount (Montante)", Value: amount},
			{Label: "Entity (Entidade)", Value: mb.Entity},
			{Label: "Reference (Referencia)", Value: mb.Reference},
		}
	}
	return []ReceiverField{{Label: "Amount", Value: amount}}
}

func (c *Checkout) startPolling(ctx context.Context, intentID string, timeout time.Duration) {
	poller := NewPoller(PollerParams{
		Fetch:     c.api,
		Interval:  c.pollInterval,
		Timeout:   timeout,
		OnSettled: c.renderSettled,
		OnTimeout: c.renderTimeout,
	})

	c.mu.Lock()
	if c.poller != nil {
		c.poller.Stop()
	}
	c.poller = poller
	c.mu.Unlock()

	poller.Start(ctx, intentID)
}

func (c *Checkout) enterProcessing(ctx context.Context, intentID string, timeout time.Duration) {
	c.setState(StateProcessing)
	c.ui.ShowScreen(ScreenProcessing)
	c.startPolling(ctx, intentID, timeout)
}

// renderPayment settles a synchronous confirmation result into a screen.
func (c *Checkout) renderPayment(intent *stripe.PaymentIntent) {
	if intent == nil {
		c.submitFailed(errors.New(errors.CodeProvider, "confirmation returned no payment intent"))
		return
	}
	c.mu.Lock()
	c.intent = intent
	c.mu.Unlock()
	c.renderSettled(intent.Status)
}

// renderSettled maps a settled intent status onto the terminal screens.
// `processing` still renders success, with a caveat that bank confirmation
// is pending.
func (c *Checkout) renderSettled(status stripe.IntentStatus) {
	switch status {
	case stripe.IntentStatusSucceeded:
		c.setState(StateSuccess)
		c.ui.ShowNote(noteReceiptSent)
		c.ui.ShowScreen(ScreenSuccess)
	case stripe.IntentStatusProcessing:
		c.setState(StateSuccess)
		c.ui.ShowNote(notePaymentPending)
		c.ui.ShowScreen(ScreenSuccess)
	default:
		c.setState(StateError)
		c.ui.ShowErrorMessage(msgCanceled)
		c.ui.ShowScreen(ScreenError)
	}
}

// renderTimeout reports an unknown outcome. Never rendered as an error:
// the payment may still complete.
func (c *Checkout) renderTimeout(last stripe.IntentStatus) {
	c.setState(StateCheckout)
	c.ui.ShowTimeoutNotice(noteTimeout)
}

// submitFailed routes a submission error: validation problems re-enable
// the form, provider declines reach the error screen with their reason,
// and anything else re-enables with a retry prompt.
func (c *Checkout) submitFailed(err error) {
	typed := errors.As(err)
	switch {
	case typed != nil && typed.Code() == errors.CodeValidation:
		c.setState(StateCheckout)
		c.ui.ShowScreen(ScreenCheckout)
		c.ui.SetSubmitEnabled(true)
		c.updateSubmitLabel()

	case typed != nil && typed.Code() == errors.CodeProvider:
		c.setState(StateError)
		c.ui.ShowErrorMessage(typed.Message())
		c.ui.ShowScreen(ScreenError)

	default:
		c.setState(StateCheckout)
		c.ui.ShowScreen(ScreenCheckout)
		c.ui.ShowNote(noteRetry)
		c.ui.SetSubmitEnabled(true)
		c.updateSubmitLabel()
	}
}

func (c *Checkout) updateSubmitLabel() {
	c.mu.Lock()
	intent := c.intent
	c.mu.Unlock()

	amount := c.session.Total()
	if intent != nil {
		amount = intent.Amount
	}
	formatted := c.session.FormatAmount(amount)

	label := fmt.Sprintf("Pay %s", formatted)
	if methodID := c.session.Method(); methodID != "" && methodID != "card" {
		if method, ok := MethodByID(methodID); ok {
			label = fmt.Sprintf("Pay %s with %s", formatted, method.Name)
			if method.Flow == FlowPolling {
				label = fmt.Sprintf("Generate QR code to pay %s with %s", formatted, method.Name)
			}
		}
	}
	c.ui.SetSubmitLabel(label)
}
