package api

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/cvm-report/internal/cvm"
)

// MinYear is the earliest year the portal publishes structured statements for.
const MinYear = 2010

var (
	cnpjPattern    = regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`)
	docTypePattern = regexp.MustCompile(`^(ITR|FRE|itr|fre)$`)
)

// validationError is reported to clients as 422.
type validationError struct {
	field string
	msg   string
}

func (e *validationError) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.msg)
}

func parseDocType(s string) (cvm.DocType, error) {
	if !docTypePattern.MatchString(s) {
		return "", &validationError{field: "doc_type", msg: "deve ser ITR ou FRE"}
	}
	return cvm.DocType(strings.ToUpper(s)), nil
}

func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, &validationError{field: "year", msg: "deve ser um número inteiro"}
	}
	return year, checkYear(year)
}

func checkYear(year int) error {
	if year < MinYear {
		return &validationError{field: "year", msg: fmt.Sprintf("deve ser maior ou igual a %d", MinYear)}
	}
	return nil
}

// parseCNPJ accepts a formatted CNPJ, URL-escaped or not.
func parseCNPJ(s string) (string, error) {
	cnpj, err := url.PathUnescape(s)
	if err != nil {
		return "", &validationError{field: "cnpj", msg: "codificação inválida"}
	}
	if !cnpjPattern.MatchString(cnpj) {
		return "", &validationError{field: "cnpj", msg: "formato esperado XX.XXX.XXX/XXXX-XX"}
	}
	return cnpj, nil
}

// parseStatements splits a statements query into names. Both
// ?statements=BPA,DRE and repeated ?statements= forms are accepted.
func parseStatements(values []string) []string {
	var names []string
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}
