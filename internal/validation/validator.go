// Package validation проверяет недоверенные входные данные до обращения к хранилищу.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/RoGogDBD/items/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Границы полей товара.
const (
	NameMinLen        = 3
	NameMaxLen        = 32
	DescriptionMinLen = 10
	DescriptionMaxLen = 100

	// PriceMaxIntegerDigits и PriceMaxScale совпадают с CHECK в миграции items.
	PriceMaxIntegerDigits = 10
	PriceMaxScale         = 2
)

// ErrBodyTooLarge тело запроса превысило лимит читателя.
var ErrBodyTooLarge = errors.New("request body too large")

// FieldError описывает нарушение ограничения одного поля.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors список нарушений. Payload отклоняется целиком, если список не пуст.
type Errors []FieldError

func (e Errors) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// Messages возвращает человекочитаемые сообщения в порядке полей.
func (e Errors) Messages() []string {
	out := make([]string, 0, len(e))
	for _, fe := range e {
		out = append(out, fe.Message)
	}
	return out
}

// itemPayload сохраняет отсутствие поля через nil, чтобы отличать его от нулевого значения.
type itemPayload struct {
	Name        *string          `json:"name" validate:"required,min=3,max=32"`
	Description *string          `json:"description" validate:"required,min=10,max=100"`
	Price       *decimal.Decimal `json:"price" validate:"required,positive_decimal,price_bounds"`
}

// Validator превращает сырое тело запроса в доверенный models.NewItem.
type Validator struct {
	v *validator.Validate
}

// New создает валидатор с поддержкой decimal и json-именами полей в ошибках.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// регистрация тегов на литералах не может завершиться ошибкой
	_ = v.RegisterValidation("positive_decimal", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && d.Sign() > 0
	})
	_ = v.RegisterValidation("price_bounds", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && priceInBounds(d)
	})
	return &Validator{v: v}
}

// DecodeItem читает JSON-объект {name, description, price} и проверяет его.
// Ошибки содержимого возвращаются как Errors, превышение лимита http.MaxBytesReader как ErrBodyTooLarge.
func (val *Validator) DecodeItem(r io.Reader) (models.NewItem, error) {
	var p itemPayload
	dec := json.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		return models.NewItem{}, readError(err)
	}
	// после объекта допускаются только пробелы
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if tooLarge := bodyTooLarge(err); tooLarge != nil {
			return models.NewItem{}, tooLarge
		}
		return models.NewItem{}, Errors{{Field: "body", Message: "request body must contain a single JSON object"}}
	}
	return val.check(p)
}

// ParseItem то же, что DecodeItem, для уже прочитанного сообщения.
func (val *Validator) ParseItem(data []byte) (models.NewItem, error) {
	var p itemPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.NewItem{}, decodeErrors(err)
	}
	return val.check(p)
}

func (val *Validator) check(p itemPayload) (models.NewItem, error) {
	if err := val.v.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return models.NewItem{}, fmt.Errorf("validate item: %w", err)
		}
		out := make(Errors, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
		}
		return models.NewItem{}, out
	}
	return models.NewItem{
		Name:        *p.Name,
		Description: *p.Description,
		Price:       *p.Price,
	}, nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "positive_decimal":
		return fmt.Sprintf("%s must be greater than 0", fe.Field())
	case "price_bounds":
		return fmt.Sprintf("%s must have at most %d integer digits and %d decimal places", fe.Field(), PriceMaxIntegerDigits, PriceMaxScale)
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// priceInBounds не разворачивает decimal в строку: 1e50000000 проверяется за O(1).
func priceInBounds(d decimal.Decimal) bool {
	coef := d.Coefficient()
	if coef.Sign() <= 0 || coef.BitLen() > 63 {
		return false
	}
	c, exp := coef.Int64(), int64(d.Exponent())
	for exp < 0 && c%10 == 0 {
		c /= 10
		exp++
	}
	if -exp > PriceMaxScale {
		return false
	}
	return int64(len(strconv.FormatInt(c, 10)))+exp <= PriceMaxIntegerDigits
}

func readError(err error) error {
	if tooLarge := bodyTooLarge(err); tooLarge != nil {
		return tooLarge
	}
	return decodeErrors(err)
}

func bodyTooLarge(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, mbe.Limit)
	}
	return nil
}

func decodeErrors(err error) Errors {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return Errors{{Field: "body", Message: "request body is empty"}}
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return Errors{{Field: typeErr.Field, Message: fmt.Sprintf("%s must be of type %s", typeErr.Field, expectedType(typeErr.Field))}}
	default:
		return Errors{{Field: "body", Message: "request body must be a JSON object with name, description and price"}}
	}
}

func expectedType(field string) string {
	if field == "price" {
		return "number"
	}
	return "string"
}
