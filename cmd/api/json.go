package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/shopspring/decimal"

	"vitrine/internal/domain/catalog"
)

const (
	maxJSONBytes   = 1_048_578 //1mb
	maxUploadBytes = 20 << 20  // several product photos per request
)

var Validate *validator.Validate

var formDecoder = schema.NewDecoder()

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	// report json field names so messages match what the client sent
	Validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Brazilian company registry number, formatted or digits only
	Validate.RegisterValidation("cnpj", func(fl validator.FieldLevel) bool {
		return validCNPJ(fl.Field().String())
	})

	formDecoder.SetAliasTag("json")
	formDecoder.IgnoreUnknownKeys(true)

	// prices go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// it parses body into Go struct.
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxJSONBytes))

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string) error {
	return writeJSON(w, status, &ErrorResponse{Error: message})
}

type messageResponse struct {
	Message string `json:"message"`
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// readPayload fills dst from a JSON body or from the values of a multipart
// form. The caller must release the form with r.MultipartForm.RemoveAll.
func readPayload(w http.ResponseWriter, r *http.Request, dst any) error {
	if !isMultipart(r) {
		return readJSON(w, r, dst)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return fmt.Errorf("failed to parse form: %w", err)
	}
	return formDecoder.Decode(dst, r.MultipartForm.Value)
}

func releaseForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

var errInvalidPrice = errors.New("invalid price")

// priceField is a price that may be absent, null or blank (cleared), a JSON
// number, or a string such as "1.234,56" or "R$ 10,00".
type priceField struct {
	Set   bool
	Value decimal.NullDecimal
}

func (f *priceField) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = priceField{Set: true}
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	return f.UnmarshalText([]byte(s))
}

func (f *priceField) UnmarshalText(b []byte) error {
	f.Set = true
	s := strings.TrimSpace(string(b))
	if s == "" {
		f.Value = decimal.NullDecimal{}
		return nil
	}
	d, err := catalog.ParsePrice(s)
	if err != nil {
		return fmt.Errorf("%w %q", errInvalidPrice, s)
	}
	f.Value = decimal.NullDecimal{Decimal: d, Valid: true}
	return nil
}

// ptr returns the price, or nil when it is absent or cleared.
func (f priceField) ptr() *decimal.Decimal {
	if !f.Set || !f.Value.Valid {
		return nil
	}
	d := f.Value.Decimal
	return &d
}

// jsonValue is a structured field that arrives as nested JSON in a JSON
// body, or as a JSON encoded string in a multipart form.
type jsonValue[T any] struct {
	Set   bool
	Value T
}

func (v *jsonValue[T]) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*v = jsonValue[T]{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return v.UnmarshalText([]byte(unquoted))
	}
	v.Set = true
	return json.Unmarshal(b, &v.Value)
}

func (v *jsonValue[T]) UnmarshalText(b []byte) error {
	v.Set = true
	if err := json.Unmarshal(b, &v.Value); err != nil {
		return fmt.Errorf("invalid json field: %w", err)
	}
	return nil
}

var fieldLabels = map[string]string{
	"name":          "nome",
	"lastName":      "sobrenome",
	"title":         "título",
	"email":         "e-mail",
	"password":      "senha",
	"role":          "perfil",
	"platform":      "plataforma",
	"url":           "URL",
	"linkUrl":       "link",
	"storeName":     "nome da loja",
	"cnpj":          "CNPJ",
	"state":         "UF",
	"zipCode":       "CEP",
	"seoTitle":      "título SEO",
	"description":   "descrição",
	"price":         "preço",
	"discountPrice": "preço promocional",
}

// validationMessage turns the first validation failure into a user facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Dados inválidos"
	}

	fe := verrs[0]
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("O campo %s é obrigatório", label)
	case "email":
		return "E-mail inválido"
	case "url", "http_url":
		return fmt.Sprintf("O campo %s deve ser uma URL válida", label)
	case "min":
		return fmt.Sprintf("O campo %s deve ter no mínimo %s caracteres", label, fe.Param())
	case "max":
		return fmt.Sprintf("O campo %s deve ter no máximo %s caracteres", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("O campo %s deve ser um de: %s", label, fe.Param())
	case "cnpj":
		return "CNPJ inválido"
	case "gte":
		return fmt.Sprintf("O campo %s não pode ser negativo", label)
	}
	return fmt.Sprintf("O campo %s é inválido", label)
}

func validCNPJ(s string) bool {
	digits := make([]int, 0, 14)
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == '.' || r == '/' || r == '-' || r == ' ':
		default:
			return false
		}
	}
	if len(digits) != 14 {
		return false
	}

	// all-zero is the unset placeholder
	allSame := true
	for _, d := range digits[1:] {
		if d != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return digits[0] == 0
	}

	check := func(n int) int {
		weights := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}[13-n:]
		sum := 0
		for i := 0; i < n; i++ {
			sum += digits[i] * weights[i]
		}
		if rem := sum % 11; rem >= 2 {
			return 11 - rem
		}
		return 0
	}
	return check(12) == digits[12] && check(13) == digits[13]
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
