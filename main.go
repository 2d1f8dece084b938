package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"convo_server/routes"
	"convo_server/services"
	"convo_server/socket"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Local development config; in deployment the environment is already set
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	accessSecret := os.Getenv("JWT_ACCESS_SECRET")
	refreshSecret := os.Getenv("JWT_REFRESH_SECRET")
	if accessSecret == "" || refreshSecret == "" {
		log.Fatal("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET environment variables are required")
	}

	// Initialize store clients
	log.Println("Initializing DynamoDB client...")
	dynamoClient := services.InitializeDynamoDBClient()
	dynamoService := &services.DynamoService{Client: dynamoClient}
	log.Println("DynamoDB client initialized.")

	log.Println("Initializing Redis client...")
	redisClient := services.InitializeRedisClient()
	cache := &services.RedisCache{Client: redisClient}
	log.Println("Redis client initialized.")

	// Socket.IO server doubles as the fanout transport
	socketServer := socket.NewSocketServer()
	go func() {
		if err := socketServer.Serve(); err != nil {
			log.Fatalf("Socket server error: %v", err)
		}
	}()
	defer socketServer.Close()
	notifier := &services.SocketNotifier{Server: socketServer}

	// Initialize services
	tokenService := services.NewTokenService(services.TokenConfig{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		AccessTTL:     durationFromEnv("ACCESS_TOKEN_TTL"),
		RefreshTTL:    durationFromEnv("REFRESH_TOKEN_TTL"),
	})
	userStore := &services.DynamoUserStore{Dynamo: dynamoService}
	userService := &services.UserService{Store: userStore, Cache: cache, Tokens: tokenService}
	friendService := &services.FriendService{Store: userStore, Users: userService, Cache: cache, Notify: notifier}
	conversationStore := &services.DynamoConversationStore{Dynamo: dynamoService}
	conversationService := &services.ConversationService{
		Store:   conversationStore,
		Friends: friendService,
		Users:   userService,
		Cache:   cache,
		Notify:  notifier,
	}
	s3Service := &services.S3Service{
		Client: services.InitializeS3Client(),
		Bucket: os.Getenv("S3_BUCKET_NAME"),
	}

	// Set up the server port
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Using server port: %s\n", port)

	// Initialize the router
	r := mux.NewRouter()

	// Register a welcome route
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Welcome to Convo")
	}).Methods("GET")

	// Register a health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		json.NewEncoder(w).Encode(response)
	}).Methods("GET")

	// Register routes
	routes.RegisterUserRoutes(r, userService, friendService)
	routes.RegisterConversationRoutes(r, userService, conversationService)
	routes.RegisterAttachmentRoutes(r, userService, s3Service)
	r.Handle("/socket.io/", socketServer)

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Adjust for specific domains if needed
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	// Start the HTTP server
	log.Printf("Starting server on port %s...\n", port)
	log.Fatal(http.ListenAndServe(":"+port, corsHandler))
}

// durationFromEnv parses an optional duration variable; zero means "use the
// service default".
func durationFromEnv(name string) time.Duration {
	value := os.Getenv(name)
	if value == "" {
		return 0
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Invalid %s: %v", name, err)
	}
	return d
}
