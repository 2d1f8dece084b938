package routes

import (
	"convo_server/controllers"
	"convo_server/services"

	"github.com/gorilla/mux"
)

// RegisterConversationRoutes sets up conversation routes under /user/conversation
func RegisterConversationRoutes(r *mux.Router, users *services.UserService, conversations *services.ConversationService) {
	controller := controllers.NewConversationController(conversations)
	authMiddleware := controllers.NewAuthMiddleware(users)

	conversationRouter := r.PathPrefix("/user/conversation").Subrouter()
	conversationRouter.Use(authMiddleware.Middleware)

	conversationRouter.HandleFunc("/send", controller.HandleSendMessage).Methods("POST")
	conversationRouter.HandleFunc("/messages", controller.HandleGetMessages).Methods("GET")
	conversationRouter.HandleFunc("/partnerDetails", controller.HandlePartnerDetails).Methods("GET")
}
