package testing

import (
	"encoding/json"
	"io"

	"github.com/onsi/gomega"
	"github.com/veedubyou/vocal-isolator/src/server/api_error"
)

func DecodeJSON[T any](jsonBody io.Reader) T {
	t := new(T)
	err := json.NewDecoder(jsonBody).Decode(t)
	gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())

	return *t
}

// DecodeJSONError also checks the body is an error envelope with a code.
func DecodeJSONError(jsonBody io.Reader) api_error.JSONAPIError {
	jsonErr := DecodeJSON[api_error.JSONAPIError](jsonBody)
	gomega.ExpectWithOffset(1, jsonErr.Code).NotTo(gomega.BeEmpty())

	return jsonErr
}
