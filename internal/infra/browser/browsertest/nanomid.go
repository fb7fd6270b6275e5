package browsertest

// NanomidScript configures a scripted copy of the target site's login and
// device pages.
type NanomidScript struct {
	LoginURL     string
	DashboardURL string
	DevicesURL   string

	Email    string
	Password string
	// AcceptOTP is the only code the device form accepts.
	AcceptOTP string

	// DashboardNeverLoads keeps the browser on the login page after submit.
	DashboardNeverLoads bool

	Confirmation string
	Rejection    string
}

type NanomidSite struct {
	*Site

	EmailField    *Element
	PasswordField *Element
	LoginButton   *Element

	OTPField   *Element
	LabelField *Element
	Submit     *Element
}

func NewNanomidSite(s NanomidScript) *NanomidSite {
	if s.LoginURL == "" {
		s.LoginURL = "https://nanomid.test/en/login"
	}
	if s.DashboardURL == "" {
		s.DashboardURL = "https://nanomid.test/en/dashboard"
	}
	if s.DevicesURL == "" {
		s.DevicesURL = "https://nanomid.test/en/dashboard/player/devices"
	}
	if s.Confirmation == "" {
		s.Confirmation = "Added"
	}
	if s.Rejection == "" {
		s.Rejection = "Invalid code"
	}

	n := &NanomidSite{Site: NewSite()}

	n.EmailField = &Element{Selectors: []string{`input[name="email"]`}, Placeholder: "Email"}
	n.PasswordField = &Element{Selectors: []string{`input[name="password"]`}, Placeholder: "Password"}
	n.LoginButton = &Element{
		Role:      "button",
		Name:      "Log in",
		Selectors: []string{`button[type="submit"]`},
		OnClick: func(p *Page) {
			if s.DashboardNeverLoads {
				return
			}
			if n.EmailField.Value() == s.Email && n.PasswordField.Value() == s.Password {
				p.Navigate(s.DashboardURL)
				return
			}
			p.ShowText("Wrong email or password")
		},
	}
	n.Handle(s.LoginURL, &Document{
		Elements: []*Element{n.EmailField, n.PasswordField, n.LoginButton},
	})
	n.Handle(s.DashboardURL, &Document{Texts: []string{"Dashboard"}})

	n.OTPField = &Element{Label: "Quickcode", Selectors: []string{`input[name*="otp" i]`}}
	n.LabelField = &Element{Placeholder: "Device name", Selectors: []string{`input[name*="name" i]`}}
	n.Submit = &Element{
		Role:      "button",
		Name:      "Add device",
		Selectors: []string{`button[type="submit"]`},
		OnClick: func(p *Page) {
			if n.OTPField.Value() == s.AcceptOTP && n.LabelField.Value() != "" {
				p.ShowText(s.Confirmation)
				return
			}
			p.ShowText(s.Rejection)
		},
	}
	n.Handle(s.DevicesURL, &Document{
		Elements: []*Element{n.OTPField, n.LabelField, n.Submit},
		Texts:    []string{"My devices"},
	})

	return n
}
