package routes

import (
	"convo_server/controllers"
	"convo_server/services"

	"github.com/gorilla/mux"
)

// RegisterUserRoutes sets up the identity and relationship routes under /user
func RegisterUserRoutes(r *mux.Router, users *services.UserService, friends *services.FriendService) {
	userController := controllers.NewUserController(users)
	friendController := controllers.NewFriendController(friends)
	authMiddleware := controllers.NewAuthMiddleware(users)

	userRouter := r.PathPrefix("/user").Subrouter()

	// Public credential endpoints
	userRouter.HandleFunc("/signup", userController.HandleSignUp).Methods("POST")
	userRouter.HandleFunc("/signin", userController.HandleSignIn).Methods("POST")
	userRouter.HandleFunc("/refresh", userController.HandleRefresh).Methods("POST")
	userRouter.HandleFunc("/logout", userController.HandleLogout).Methods("POST")

	// Everything else passes through credential rotation
	protected := userRouter.NewRoute().Subrouter()
	protected.Use(authMiddleware.Middleware)

	protected.HandleFunc("", userController.HandleCurrentUser).Methods("GET")
	protected.HandleFunc("/add-friend", friendController.HandleAddFriend).Methods("POST")
	protected.HandleFunc("/friend-requests", friendController.HandleListRequests).Methods("GET")
	protected.HandleFunc("/friend-requests/accept", friendController.HandleAcceptRequest).Methods("POST")
	protected.HandleFunc("/friend-requests/decline", friendController.HandleDeclineRequest).Methods("POST")
	protected.HandleFunc("/friends", friendController.HandleListFriends).Methods("GET")
}
