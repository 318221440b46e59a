// Package validator checks wizard drafts before anything is sent.
package validator

import (
	"reflect"
	"regexp"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/unclebandit/partnerconnex-backend/internal/model"
)

// Field keys reported to the client.
const (
	KeyActivityName = "activityName"
	KeyMainSNS      = "mainSns"
	KeyMainAccount  = "mainAccount"
	KeyContact      = "contact"
	KeyEmail        = "email"
	KeyGenderRatio  = "genderRatio"
)

var messages = map[string]string{
	KeyActivityName: "Activity name is required",
	KeyMainSNS:      "Main SNS is required",
	KeyMainAccount:  "Main account is required",
	KeyContact:      "Either an email address or a LINE ID is required",
	KeyEmail:        "Please enter a valid email address",
	KeyGenderRatio:  "Male and female ratio must add up to 100%",
}

// Message returns the user-facing text for a field key.
func Message(key string) string {
	return messages[key]
}

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsEmailShape reports whether s looks like local@domain.tld.
func IsEmailShape(s string) bool {
	return emailShape.MatchString(s)
}

type submissionForm struct {
	ActivityName string `key:"activityName" validate:"notblank"`
	MainSNS      string `key:"mainSns" validate:"platform"`
	MainAccount  string `key:"mainAccount" validate:"notblank"`
	Email        string `key:"email" validate:"omitempty,emailshape"`
	LineID       string `key:"lineId"`
	Male         int    `key:"male"`
	Female       int    `key:"female"`
}

type optInForm struct {
	Email  string `key:"email" validate:"omitempty,emailshape"`
	LineID string `key:"lineId"`
}

var validate = newValidate()

func newValidate() *govalidator.Validate {
	v := govalidator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("key")
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("emailshape", func(fl govalidator.FieldLevel) bool {
		return IsEmailShape(fl.Field().String())
	})
	_ = v.RegisterValidation("platform", func(fl govalidator.FieldLevel) bool {
		return model.IsSupportedPlatform(fl.Field().String())
	})
	v.RegisterStructValidation(func(sl govalidator.StructLevel) {
		f := sl.Current().Interface().(submissionForm)
		requireContact(sl, f.Email, f.LineID)
		if f.Male+f.Female != 100 {
			sl.ReportError(f.Male, KeyGenderRatio, "Male", "ratio", "100")
		}
	}, submissionForm{})
	v.RegisterStructValidation(func(sl govalidator.StructLevel) {
		f := sl.Current().Interface().(optInForm)
		requireContact(sl, f.Email, f.LineID)
	}, optInForm{})
	return v
}

func requireContact(sl govalidator.StructLevel, email, lineID string) {
	if email == "" && lineID == "" {
		sl.ReportError(email, KeyContact, "Email", "contact", "")
	}
}

// ValidateSubmission returns field key -> message for the accept-path draft.
// An empty map means the draft may be sent.
func ValidateSubmission(d model.SubmissionDraft) map[string]string {
	return collect(submissionForm{
		ActivityName: d.ActivityName,
		MainSNS:      d.MainSNS,
		MainAccount:  d.MainAccount,
		Email:        d.ContactEmail,
		LineID:       d.ContactLineID,
		Male:         d.GenderRatio.Male,
		Female:       d.GenderRatio.Female,
	})
}

// ValidateOptIn applies the contact rules to the decline-path form.
func ValidateOptIn(d model.OptInDraft) map[string]string {
	return collect(optInForm{Email: d.ContactEmail, LineID: d.ContactLineID})
}

func collect(form interface{}) map[string]string {
	out := map[string]string{}
	err := validate.Struct(form)
	if err == nil {
		return out
	}
	verrs, ok := err.(govalidator.ValidationErrors)
	if !ok {
		return out
	}
	for _, fe := range verrs {
		key := fe.Field()
		out[key] = Message(key)
	}
	return out
}

// ClearedBy returns the error keys a change to the given draft field resolves.
// Editing the email clears both the contact and email errors; editing the
// LINE ID clears only the contact error.
func ClearedBy(field string) []string {
	switch field {
	case KeyActivityName, KeyMainSNS, KeyMainAccount:
		return []string{field}
	case KeyEmail:
		return []string{KeyContact, KeyEmail}
	case "lineId":
		return []string{KeyContact}
	case "male", "female", KeyGenderRatio:
		return []string{KeyGenderRatio}
	}
	return nil
}
