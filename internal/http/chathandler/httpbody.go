package chathandler

type CreateConversationBody struct {
	ParticipantCompanyIDs []string `json:"participant_company_ids" binding:"required,min=2" example:"co1,co2"`
} // @name CreateConversationRequest

type SendMessageBody struct {
	SenderID string `json:"sender_id" binding:"required"       example:"co1"`
	Content  string `json:"content"   binding:"required,min=1" example:"hello"`
} // @name SendMessageRequest

type MarkReadBody struct {
	CompanyID string `json:"company_id" binding:"required" example:"co2"`
} // @name MarkReadRequest

type ListConversationsQuery struct {
	CompanyID string `form:"company_id" binding:"required"`
} // @name ListConversationsQuery

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
