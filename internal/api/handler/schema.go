package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type registerRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email"    form:"email"    validate:"required,email,max=255"`
	Password string `json:"password" form:"password" validate:"required,min=8,max=128"`
}

type registerResponse struct {
	Success  bool   `json:"success"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

// --- Users ---

// userResponse never carries the password hash.
type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

type listUsersResponse struct {
	Users []userResponse `json:"users"`
	Total int64          `json:"total"`
	Skip  int            `json:"skip"`
	Limit int            `json:"limit"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// --- Vulnerabilities ---

type createVulnerabilityRequest struct {
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"required,min=10,max=500"`
	Severity    string `json:"severity"    validate:"required,oneof=low medium high critical"`
}

type vulnerabilityResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	CreatedBy   int64  `json:"created_by"`
	CreatedAt   string `json:"created_at"`
	Status      string `json:"status"`
}

type listVulnerabilitiesResponse struct {
	Vulnerabilities []vulnerabilityResponse `json:"vulnerabilities"`
	Total           int64                   `json:"total"`
	Page            int                     `json:"page"`
	Limit           int                     `json:"limit"`
	TotalPages      int                     `json:"total_pages"`
}

type deleteVulnerabilityResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
	Status  string `json:"status"`
}
