package checkout

// Flow is the closed set of confirmation flows. Every payment method maps
// to exactly one; adding a method means adding a table row, not a branch.
type Flow string

const (
	// FlowImmediate confirms synchronously through the payment SDK with
	// collected payment-method details.
	FlowImmediate Flow = "immediate"
	// FlowRedirect creates a source and navigates the customer away; the
	// session resumes through the return URL.
	FlowRedirect Flow = "redirect"
	// FlowReceiver displays account and reference numbers the customer
	// transfers funds to, then polls the intent.
	FlowReceiver Flow = "receiver"
	// FlowPolling displays a scannable code and polls the intent with an
	// extended timeout.
	FlowPolling Flow = "polling"
)

// Method describes one payment method offered at checkout. Nil country or
// currency lists mean no restriction.
type Method struct {
	ID         string
	Name       string
	Flow       Flow
	Countries  []string
	Currencies []string
}

var methodTable = map[string]Method{
	"ach_credit_transfer": {
		ID:         "ach_credit_transfer",
		Name:       "Bank Transfer",
		Flow:       FlowReceiver,
		Countries:  []string{"US"},
		Currencies: []string{"usd"},
	},
	"alipay": {
		ID:         "alipay",
		Name:       "Alipay",
		Flow:       FlowRedirect,
		Countries:  []string{"CN", "HK", "SG", "JP"},
		Currencies: []string{"aud", "cad", "eur", "gbp", "hkd", "jpy", "nzd", "sgd", "usd"},
	},
	"bancontact": {
		ID:         "bancontact",
		Name:       "Bancontact",
		Flow:       FlowRedirect,
		Countries:  []string{"BE"},
		Currencies: []string{"eur"},
	},
	"card": {
		ID:   "card",
		Name: "Card",
		Flow: FlowImmediate,
	},
	"eps": {
		ID:         "eps",
		Name:       "EPS",
		Flow:       FlowRedirect,
		Countries:  []string{"AT"},
		Currencies: []string{"eur"},
	},
	"giropay": {
		ID:         "giropay",
		Name:       "Giropay",
		Flow:       FlowRedirect,
		Countries:  []string{"DE"},
		Currencies: []string{"eur"},
	},
	"ideal": {
		ID:         "ideal",
		Name:       "iDEAL",
		Flow:       FlowRedirect,
		Countries:  []string{"NL"},
		Currencies: []string{"eur"},
	},
	"multibanco": {
		ID:         "multibanco",
		Name:       "Multibanco",
		Flow:       FlowReceiver,
		Countries:  []string{"PT"},
		Currencies: []string{"eur"},
	},
	"sepa_debit": {
		ID:         "sepa_debit",
		Name:       "SEPA Direct Debit",
		Flow:       FlowImmediate,
		Countries:  []string{"FR", "DE", "ES", "BE", "NL", "LU", "IT", "PT", "AT", "IE", "FI"},
		Currencies: []string{"eur"},
	},
	"sofort": {
		ID:         "sofort",
		Name:       "SOFORT",
		Flow:       FlowRedirect,
		Countries:  []string{"DE", "AT"},
		Currencies: []string{"eur"},
	},
	"wechat": {
		ID:         "wechat",
		Name:       "WeChat",
		Flow:       FlowPolling,
		Countries:  []string{"CN", "HK", "SG", "JP"},
		Currencies: []string{"aud", "cad", "eur", "gbp", "hkd", "jpy", "nzd", "sgd", "usd"},
	},
}

// MethodByID looks a payment method up in the table.
func MethodByID(id string) (Method, bool) {
	method, ok := methodTable[id]
	return method, ok
}

func (m Method) availableIn(country, currency string) bool {
	if m.Countries != nil && !contains(m.Countries, country) {
		return false
	}
	if m.Currencies != nil && !contains(m.Currencies, currency) {
		return false
	}
	return true
}

// AvailableMethods filters the store's enabled methods by the customer's
// country and the store currency. Card is always offered.
func AvailableMethods(enabled []string, country, currency string) []Method {
	var out []Method
	for _, id := range enabled {
		method, ok := methodTable[id]
		if !ok {
			continue
		}
		if method.ID == "card" || method.availableIn(country, currency) {
			out = append(out, method)
		}
	}
	return out
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
