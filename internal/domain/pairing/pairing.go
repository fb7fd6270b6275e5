package pairing

import "strings"

// Request is a single device pairing attempt as submitted by the caller.
type Request struct {
	OTP   string
	Label string
}

// Result is what one automation run reports back.
type Result struct {
	OK    bool
	Error string
	// Kind classifies a failure; empty on success.
	Kind Kind
}

func NewRequest(otp, label string) (Request, error) {
	otp = strings.TrimSpace(otp)
	label = strings.TrimSpace(label)

	if otp == "" || label == "" {
		return Request{}, NewError(KindValidation, "otp and label are required", nil)
	}

	return Request{OTP: otp, Label: label}, nil
}

func Succeeded() Result {
	return Result{OK: true}
}

// Failed turns err into a failure result carrying its message.
func Failed(err error) Result {
	if err == nil {
		return Result{Error: string(KindUnexpected), Kind: KindUnexpected}
	}
	return Result{Error: err.Error(), Kind: KindOf(err)}
}
