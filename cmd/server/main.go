// @title           Personal Drive API
// @version         1.0
// @host            localhost
// @schemes         http https
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"log"
	"net/http"

	"dysk-osobisty/internal/api"
	"dysk-osobisty/internal/config"
	"dysk-osobisty/internal/database"
	"dysk-osobisty/internal/storage"
	"dysk-osobisty/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "dysk-osobisty/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Nie można wczytać konfiguracji: %v", err)
	}

	dbpool, err := pgxpool.New(context.Background(), cfg.DB.Source)
	if err != nil {
		log.Fatalf("Nie można połączyć się z bazą danych: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(context.Background()); err != nil {
		log.Fatalf("Nie można pingować bazy danych: %v", err)
	}
	log.Println("Pomyślnie połączono z bazą danych")

	localStorage, err := storage.NewLocalStorage(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Nie można zainicjować local storage: %v", err)
	}
	log.Printf("Pliki będą przechowywane w: %s", cfg.Storage.Path)

	wsHub := websocket.NewHub()
	go wsHub.Run()

	store := database.NewStore(dbpool)
	server := api.NewServer(cfg, store, localStorage, wsHub)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("https://localhost/swagger/doc.json"),
	))

	r.Get("/ws", server.ServeWsHandler)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Dysk osobisty działa! Dokumentacja dostępna pod /swagger/index.html"))
	})

	r.Post("/api/v1/auth/login", server.LoginHandler)
	r.Post("/api/v1/auth/refresh", server.RefreshTokenHandler)
	r.Post("/api/v1/auth/logout", server.LogoutHandler)

	r.Get("/health", server.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(server.AuthMiddleware)

		r.Get("/me", server.GetCurrentUserHandler)
		r.Get("/me/storage", server.GetStorageUsageHandler)
		r.Post("/me/password", server.ChangePasswordHandler)

		r.Get("/nodes", server.ListNodesHandler)
		r.Post("/nodes/folder", server.CreateFolderHandler)
		r.Post("/nodes/file", server.UploadFileHandler)
		r.Get("/nodes/{nodeId}/download", server.DownloadFileHandler)
		r.Get("/nodes/{nodeId}/archive", server.DownloadArchiveHandler)
		r.Patch("/nodes/{nodeId}", server.UpdateNodeHandler)
		r.Delete("/nodes/{nodeId}", server.TrashNodeHandler)
		r.Post("/nodes/{nodeId}/restore", server.RestoreNodeHandler)
		r.Post("/nodes/{nodeId}/star", server.ToggleStarHandler)
		r.Post("/nodes/{nodeId}/lock", server.LockFolderHandler)
		r.Post("/nodes/{nodeId}/unlock", server.UnlockFolderHandler)
		r.Post("/nodes/{nodeId}/lock/verify", server.VerifyLockHandler)

		r.Get("/starred", server.ListStarredHandler)
		r.Get("/recent", server.ListRecentHandler)

		r.Get("/trash", server.ListTrashHandler)
		r.Delete("/trash/purge", server.PurgeTrashHandler)
		r.Delete("/trash/{nodeId}", server.PermanentDeleteHandler)

		r.Get("/activity", server.ListActivityHandler)
	})

	log.Println("Uruchamianie serwera na porcie :8080")
	if err := http.ListenAndServe(":8080", r); err != nil {
		log.Fatalf("Nie można uruchomić serwera: %v", err)
	}
}
