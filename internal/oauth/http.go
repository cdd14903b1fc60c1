package oauth

import (
	"encoding/json"
	"net/http"

	"github.com/erc8004/agent-gateway/internal/apierror"
)

// rfc6749ErrorBody is the {"error","error_description"} shape RFC 6749
// §5.2 and RFC 7591 §3.2.2 mandate for token and registration failures
// — distinct from the rest of the gateway's {success,data,error}
// envelope so off-the-shelf OAuth clients can parse it.
type rfc6749ErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeRFC6749Error(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(rfc6749ErrorBody{Error: code, ErrorDescription: description})
}

// RegisterHandler serves POST /oauth/register (RFC 7591 DCR).
func RegisterHandler(s *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeRFC6749Error(w, http.StatusBadRequest, "invalid_client_metadata", "request body is not valid JSON")
			return
		}

		resp, regErr := s.RegisterClient(r.Context(), req)
		if regErr != nil {
			status := http.StatusBadRequest
			if regErr.Code == "server_error" {
				status = http.StatusInternalServerError
			}
			writeRFC6749Error(w, status, regErr.Code, regErr.Description)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(resp)
	})
}

// AuthorizeHandler serves GET /oauth/authorize.
func AuthorizeHandler(s *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		req := AuthorizeRequest{
			ResponseType:        q.Get("response_type"),
			ClientID:            q.Get("client_id"),
			RedirectURI:         q.Get("redirect_uri"),
			Scope:               q.Get("scope"),
			State:               q.Get("state"),
			CodeChallenge:       q.Get("code_challenge"),
			CodeChallengeMethod: q.Get("code_challenge_method"),
			UserID:              NewAnonymousUserID(),
		}

		redirectURL, authErr := s.Authorize(r.Context(), req)
		if authErr != nil {
			if authErr.PreRedirect {
				writeAuthorizeErrorPage(w, authErr)
				return
			}
			http.Redirect(w, r, authErr.RedirectURL(), http.StatusFound)
			return
		}

		http.Redirect(w, r, redirectURL, http.StatusFound)
	})
}

func writeAuthorizeErrorPage(w http.ResponseWriter, authErr *AuthorizeError) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	w.Write([]byte(`<!doctype html>
<html>
<head><title>Authorization request error</title></head>
<body>
<h1>Authorization request error</h1>
<p><strong>` + authErr.Code + `</strong>: ` + authErr.Description + `</p>
<p>This request could not be validated well enough to safely redirect back to the client. Contact the application developer.</p>
</body>
</html>`))
}

// TokenHandler serves POST /oauth/token.
func TokenHandler(s *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			writeRFC6749Error(w, http.StatusBadRequest, "invalid_request", "request body is not valid form data")
			return
		}

		clientID, clientSecret, hasBasicAuth := r.BasicAuth()
		if !hasBasicAuth {
			clientID = r.PostForm.Get("client_id")
			clientSecret = r.PostForm.Get("client_secret")
		}

		req := TokenRequest{
			GrantType:    r.PostForm.Get("grant_type"),
			Code:         r.PostForm.Get("code"),
			RedirectURI:  r.PostForm.Get("redirect_uri"),
			CodeVerifier: r.PostForm.Get("code_verifier"),
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RefreshToken: r.PostForm.Get("refresh_token"),
		}

		resp, tokenErr := s.Exchange(r.Context(), req)
		if tokenErr != nil {
			status := http.StatusBadRequest
			if tokenErr.Code == "invalid_client" {
				status = http.StatusUnauthorized
			} else if tokenErr.Code == "server_error" {
				status = http.StatusInternalServerError
			}
			writeRFC6749Error(w, status, tokenErr.Code, tokenErr.Description)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	})
}

// authorizationServerMetadata is the RFC 8414 document served at
// /.well-known/oauth-authorization-server.
type authorizationServerMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RegistrationEndpoint              string   `json:"registration_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
}

// protectedResourceMetadata is the RFC 9728 document served at
// /.well-known/oauth-protected-resource.
type protectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
}

// MetadataHandler serves the pair of well-known OAuth metadata
// documents that let clients discover this server's endpoints and
// capabilities without prior configuration.
func MetadataHandler(issuer string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/oauth-authorization-server", func(w http.ResponseWriter, r *http.Request) {
		apierror.WriteJSON(w, http.StatusOK, authorizationServerMetadata{
			Issuer:                            issuer,
			AuthorizationEndpoint:             issuer + "/oauth/authorize",
			TokenEndpoint:                     issuer + "/oauth/token",
			RegistrationEndpoint:              issuer + "/oauth/register",
			ResponseTypesSupported:            []string{"code"},
			GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
			CodeChallengeMethodsSupported:     []string{"S256"},
			TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post"},
		})
	})
	mux.HandleFunc("/.well-known/oauth-protected-resource", func(w http.ResponseWriter, r *http.Request) {
		apierror.WriteJSON(w, http.StatusOK, protectedResourceMetadata{
			Resource:               issuer,
			AuthorizationServers:   []string{issuer},
			BearerMethodsSupported: []string{"header"},
		})
	})
	return mux
}
