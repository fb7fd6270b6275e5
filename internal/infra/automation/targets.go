package automation

import "regexp"

var (
	dashboardURL = regexp.MustCompile(`(?i)/dashboard`)

	emailField = Field{
		Name:       "email",
		Strategies: []Strategy{BySelector(`input[name="email"]`)},
	}
	passwordField = Field{
		Name:       "password",
		Strategies: []Strategy{BySelector(`input[name="password"]`)},
	}
	loginControl = Control{
		Name: "log in",
		Strategies: []Strategy{
			ByRole("button", regexp.MustCompile(`(?i)log ?in`)),
			BySelector(`button[type="submit"]`),
		},
	}

	otpField = Field{
		Name: "OTP / quickcode",
		Strategies: []Strategy{
			ByLabel(
				regexp.MustCompile(`(?i)otp`),
				regexp.MustCompile(`(?i)quickcode`),
				regexp.MustCompile(`(?i)code`),
				regexp.MustCompile(`(?i)c[oó]digo`),
			),
			ByPlaceholder(
				regexp.MustCompile(`(?i)otp`),
				regexp.MustCompile(`(?i)quickcode`),
				regexp.MustCompile(`(?i)c[oó]digo`),
			),
			BySelector(
				`input[name*="otp" i]`,
				`input[placeholder*="otp" i]`,
				`[data-testid*="otp" i]`,
			),
		},
	}

	labelField = Field{
		Name: "device name",
		Strategies: []Strategy{
			ByLabel(
				regexp.MustCompile(`(?i)name`),
				regexp.MustCompile(`(?i)label`),
				regexp.MustCompile(`(?i)nombre`),
				regexp.MustCompile(`(?i)pedido`),
			),
			ByPlaceholder(
				regexp.MustCompile(`(?i)name`),
				regexp.MustCompile(`(?i)label`),
				regexp.MustCompile(`(?i)nombre`),
				regexp.MustCompile(`(?i)pedido`),
			),
			BySelector(
				`input[name*="name" i]`,
				`input[name*="label" i]`,
				`input[placeholder*="name" i]`,
				`input[placeholder*="nombre" i]`,
			),
		},
	}

	syncControl = Control{
		Name: "sync",
		Strategies: []Strategy{
			ByRole("button",
				regexp.MustCompile(`(?i)sync`),
				regexp.MustCompile(`(?i)pair`),
				regexp.MustCompile(`(?i)add`),
				regexp.MustCompile(`(?i)link`),
				regexp.MustCompile(`(?i)sincronizar`),
				regexp.MustCompile(`(?i)vincular`),
				regexp.MustCompile(`(?i)a[nñ]adir`),
			),
			BySelector(
				`button[type="submit"]`,
				`[data-testid*="pair" i]`,
				`[data-testid*="add" i]`,
			),
		},
	}

	confirmedMarker = regexp.MustCompile(`(?i)Added|Paired|Linked|Sincronizado|Emparejado|Añadido`)
	rejectedMarker  = regexp.MustCompile(`(?i)Invalid|inv[aá]lido|Error|Failed|no v[aá]lido`)
)
