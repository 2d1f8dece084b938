package routes

import (
	"convo_server/controllers"
	"convo_server/services"

	"github.com/gorilla/mux"
)

// RegisterAttachmentRoutes sets up the content upload route
func RegisterAttachmentRoutes(r *mux.Router, users *services.UserService, s3 *services.S3Service) {
	controller := controllers.NewAttachmentController(s3)
	authMiddleware := controllers.NewAuthMiddleware(users)

	attachmentRouter := r.PathPrefix("/user/attachments").Subrouter()
	attachmentRouter.Use(authMiddleware.Middleware)

	attachmentRouter.HandleFunc("", controller.HandleUpload).Methods("POST")
}
