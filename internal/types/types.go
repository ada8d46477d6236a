package types

// =============================================================================
// SESSION & AUTHENTICATION TYPES
// =============================================================================

// Role is the role of the logged in user
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Session is the authenticated user record persisted alongside the auth token
type Session struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	Organization string `json:"organization"`
	Region       string `json:"region"`
}

// LoginUser is the optional user block returned by the login endpoint
type LoginUser struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role,omitempty"`
	Organization string `json:"organization,omitempty"`
	Region       string `json:"region,omitempty"`
}

// LoginResponse is returned by POST /auth/login
type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type,omitempty"`
	User        *LoginUser `json:"user,omitempty"`
}

// =============================================================================
// API RESPONSE TYPES
// =============================================================================

// ValidationError is a single field-level validation failure
type ValidationError struct {
	Loc  []any  `json:"loc"` // path elements are strings or numbers
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// Dashboard is an entry returned by GET /dashboards/
type Dashboard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// EmbedToken authorizes the dashboard widget to render one dashboard
type EmbedToken struct {
	Token     string `json:"token"`
	EmbedURL  string `json:"embed_url,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// UploadResult is returned by POST /pos/upload
type UploadResult struct {
	Rows    int              `json:"rows"`
	Columns []string         `json:"columns"`
	Sample  []map[string]any `json:"sample"`
}

// AIQuery is the structured request sent to POST /ai/decision
type AIQuery struct {
	TimePeriod  string   `json:"time_period"`
	Region      string   `json:"region"`
	TopProducts []string `json:"top_products"`
	SalesTrend  string   `json:"sales_trend"`
}

// AIDecision is returned by POST /ai/decision.
// Confidence is either a qualitative string ("high", "medium", ...) or a number, and may be absent.
type AIDecision struct {
	Decision   string `json:"decision"`
	Confidence any    `json:"confidence,omitempty"`
	Reason     string `json:"reason"`
}

// Health is returned by GET /health
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}
