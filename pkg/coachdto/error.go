package coachdto

// ErrorBody is the JSON shape of every failed API call.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
