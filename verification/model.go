package verification

type VerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

type ResendRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

type ResetRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

type ResetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}
