package common

// AccessTokenHeaderName is the HTTP header carrying the access token on
// upload and file-serving requests. A "Bearer " prefix is optional.
const AccessTokenHeaderName = "Authorization"

// RequestIDHeaderName is echoed back on every HTTP response.
const RequestIDHeaderName = "X-Request-ID"
