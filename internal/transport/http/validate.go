package http

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// payloadValidator checks inbound payloads and renders failures in English,
// naming fields by their JSON tag.
type payloadValidator struct {
	validate *govalidator.Validate
	trans    ut.Translator
}

func newPayloadValidator() *payloadValidator {
	v := govalidator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)
	return &payloadValidator{validate: v, trans: trans}
}

// Check returns nil or one message listing every invalid field.
func (p *payloadValidator) Check(payload any) error {
	err := p.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var ve govalidator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fe.Translate(p.trans))
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}
