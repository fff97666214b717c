package store

// APIConfig is the completion endpoint configuration saved by the presentation layer.
// APIKey and APIURL may hold the "server-configured" sentinel.
type APIConfig struct {
	APIKey string `json:"apiKey"`
	APIURL string `json:"apiUrl"`
	Model  string `json:"model"`
}
