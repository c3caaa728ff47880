package user

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/mahudhurio/core"
)

var (
	roleTag  = "role"
	roleText = "invalid role"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// InitValidators registers the user validators. core.InitValidators must be called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	validate.RegisterStructValidation(userStructValidation, NewUser{})
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// roleValidation checks that the role is one of AllRoles
func roleValidation(fl validator.FieldLevel) bool {
	if role, ok := fl.Field().Interface().(string); ok {
		for _, r := range AllRoles {
			if role == r {
				return true
			}
		}
	}
	return false
}

func userStructValidation(sl validator.StructLevel) {
	if nu, ok := sl.Current().Interface().(NewUser); ok && nu.Password != "" {
		if passwordTooSimilar(nu.Password, nu.Name, nu.Email) {
			sl.ReportError(nu.Password, "password", "Password", pwdAttrSimTag, "")
		}
	}
}

// passwordTooSimilar reports whether pwd looks too much like one of the user attributes.
func passwordTooSimilar(pwd string, attrs ...string) bool {
	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		// compare with the local part of emails as well
		candidates := []string{strings.ToLower(attr)}
		if i := strings.Index(attr, "@"); i > 0 {
			candidates = append(candidates, strings.ToLower(attr[:i]))
		}
		for _, c := range candidates {
			m := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(c, ""))
			if m.QuickRatio() >= pwdMaxSim {
				return true
			}
		}
	}
	return false
}
