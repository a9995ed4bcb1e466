package main

import (
	"log"
	"net/http"
	"time"

	"github.com/camden-git/requestsysbackend/config"
	"github.com/camden-git/requestsysbackend/database"
	"github.com/camden-git/requestsysbackend/handlers"
	"github.com/camden-git/requestsysbackend/permissions"
	"github.com/camden-git/requestsysbackend/realtime"
	"github.com/camden-git/requestsysbackend/repository"
	"github.com/camden-git/requestsysbackend/services"
	"github.com/camden-git/requestsysbackend/workers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}
	if err := database.SyncBuiltInRoles(db); err != nil {
		log.Fatalf("FATAL: Failed to sync built-in roles: %v", err)
	}

	userRepo := repository.NewGormUserRepository(db)
	roleRepo := repository.NewGormRoleRepository(db)
	overrideRepo := repository.NewGormOverrideRepository(db)
	requestRepo := repository.NewGormRequestRepository(db)

	hub := realtime.NewHub()
	go hub.Run()

	policyService := services.NewPolicyService(userRepo, roleRepo, overrideRepo)
	admissionService := services.NewAdmissionService(policyService, requestRepo, hub)
	lifecycleService := services.NewLifecycleService(policyService, requestRepo, hub)

	sweeper := workers.NewRetentionSweeper(requestRepo, policyService, cfg.SweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	authHandler := handlers.NewAuthHandler(userRepo, policyService, cfg)
	setupHandler := handlers.NewSetupHandler(db, userRepo, roleRepo)
	requestHandler := handlers.NewRequestHandler(admissionService, lifecycleService, policyService, requestRepo)
	adminRoleHandler := handlers.NewAdminRoleHandler(roleRepo)
	adminUserHandler := handlers.NewAdminUserHandler(userRepo, roleRepo, overrideRepo, policyService)
	permissionHandler := &handlers.PermissionHandler{}

	authed := func(h http.HandlerFunc) http.Handler {
		return handlers.AuthMiddleware(userRepo, cfg, h)
	}
	authedWith := func(permission string, h http.HandlerFunc) http.Handler {
		return handlers.AuthMiddleware(userRepo, cfg,
			handlers.RequirePermission(policyService, permission, h))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/setup/admin", setupHandler.CreateFirstAdmin)
		r.Post("/auth/login", authHandler.Login)
		r.Method("GET", "/auth/me", authed(authHandler.Me))

		r.Method("GET", "/permissions", authed(permissionHandler.ListPermissionDefinitions))

		r.Route("/requests", func(r chi.Router) {
			r.Method("POST", "/", authed(requestHandler.CreateRequest))
			r.Method("GET", "/", authed(requestHandler.ListRequests))
			r.Route("/{requestID}", func(r chi.Router) {
				r.Method("GET", "/", authed(requestHandler.GetRequest))
				r.Method("DELETE", "/", authed(requestHandler.DeleteRequest))
				r.Method("POST", "/approve", authed(requestHandler.ApproveRequest))
				r.Method("POST", "/reject", authed(requestHandler.RejectRequest))
				r.Method("POST", "/available", authed(requestHandler.MarkAvailable))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Route("/roles", func(r chi.Router) {
				r.Method("GET", "/", authedWith(permissions.AdminManageRoles, adminRoleHandler.ListRoles))
				r.Method("POST", "/", authedWith(permissions.AdminManageRoles, adminRoleHandler.CreateRole))
				r.Route("/{roleID}", func(r chi.Router) {
					r.Method("GET", "/", authedWith(permissions.AdminManageRoles, adminRoleHandler.GetRole))
					r.Method("PUT", "/", authedWith(permissions.AdminManageRoles, adminRoleHandler.UpdateRole))
					r.Method("DELETE", "/", authedWith(permissions.AdminManageRoles, adminRoleHandler.DeleteRole))
					r.Method("POST", "/default", authedWith(permissions.AdminManageRoles, adminRoleHandler.SetDefaultRole))
				})
			})

			r.Route("/users", func(r chi.Router) {
				r.Method("GET", "/", authedWith(permissions.AdminManageUsers, adminUserHandler.ListUsers))
				r.Method("POST", "/", authedWith(permissions.AdminManageUsers, adminUserHandler.CreateUser))
				r.Route("/{userID}", func(r chi.Router) {
					r.Method("GET", "/", authedWith(permissions.AdminManageUsers, adminUserHandler.GetUser))
					r.Method("PUT", "/", authedWith(permissions.AdminManageUsers, adminUserHandler.UpdateUser))
					r.Method("DELETE", "/", authedWith(permissions.AdminManageUsers, adminUserHandler.DeleteUser))
					r.Method("GET", "/policy", authedWith(permissions.AdminManageUsers, adminUserHandler.GetUserPolicy))
					r.Method("PUT", "/override", authedWith(permissions.AdminManageUsers, adminUserHandler.SetOverride))
					r.Method("DELETE", "/override", authedWith(permissions.AdminManageUsers, adminUserHandler.DeleteOverride))
				})
			})
		})
	})

	r.Get("/ws", hub.ServeWS)

	serverAddr := ":" + cfg.Port
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
