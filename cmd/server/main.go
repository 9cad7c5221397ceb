package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"readrise/internal/config"
	"readrise/internal/database"
	"readrise/internal/handlers"
	"readrise/internal/repository"
	"readrise/internal/security"
	"readrise/internal/service"
	"readrise/internal/sync"
	"readrise/internal/view"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Repositories
	orgRepo := repository.NewOrgRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	kidRepo := repository.NewKidRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	logRepo := repository.NewLogRepository(db)
	incentiveRepo := repository.NewIncentiveRepository(db)
	prizeRepo := repository.NewPrizeRepository(db)

	// Services
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.NotifyEmail, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	hub := sync.NewHub(service.NewSnapshotLoader(familyRepo, incentiveRepo))

	authService := service.NewAuthService(orgRepo, familyRepo, cfg)
	registryService := service.NewRegistryService(familyRepo, kidRepo, orgRepo, incentiveRepo, hub)
	goalService := service.NewGoalService(goalRepo, kidRepo, emailService, cfg.CelebrationTTL)
	readingService := service.NewReadingService(logRepo, kidRepo)
	prizeService := service.NewPrizeService(prizeRepo, kidRepo, goalRepo, logRepo)
	exportService := service.NewExportService(familyRepo, logRepo)
	backupService := service.NewBackupService(db, familyRepo, kidRepo, goalRepo, logRepo, incentiveRepo, orgRepo)

	// Seed the base-goal catalog and per-org prize catalogs on first run
	if err := goalService.SeedDefaultGradeGoals(); err != nil {
		log.Printf("Warning: failed to seed grade goals: %v", err)
	}
	if orgs, err := orgRepo.ListOrganizations(); err != nil {
		log.Printf("Warning: failed to list organizations: %v", err)
	} else {
		for _, org := range orgs {
			if err := prizeService.SeedDefaultPrizes(org.ID); err != nil {
				log.Printf("Warning: failed to seed prizes for org %q: %v", org.ID, err)
			}
		}
	}

	// Handlers
	viewStore := view.NewStore()
	csrf := security.NewCSRFGenerator(cfg.JWTSecret)
	loginLimiter := security.NewRateLimiter(10, time.Minute)

	mw := handlers.NewMiddleware(authService, viewStore, csrf)
	oauthProviders := handlers.BuildOAuthProviders(cfg)
	authHandler := handlers.NewAuthHandler(authService, viewStore, csrf, oauthProviders, cfg.OAuthRedirectBaseURL)
	parentHandler := handlers.NewParentHandler(registryService, goalService, readingService, prizeService, viewStore)
	prizesHandler := handlers.NewPrizesHandler(prizeService, viewStore)
	adminHandler := handlers.NewAdminHandler(registryService, goalService, readingService, prizeService, backupService, exportService, emailService, orgRepo)
	streamHandler := handlers.NewStreamHandler(hub, viewStore)

	mux := http.NewServeMux()

	// Session state and navigation
	mux.HandleFunc("GET /api/state", mw.EnsureSession(authHandler.State))
	mux.HandleFunc("POST /api/navigate", mw.EnsureSession(mw.RequireCSRF(authHandler.Navigate)))
	mux.HandleFunc("GET /api/organizations", mw.EnsureSession(authHandler.Organizations))
	mux.HandleFunc("POST /api/organizations/select", mw.EnsureSession(mw.RequireCSRF(authHandler.SelectOrg)))

	// Entry flows
	mux.HandleFunc("POST /api/parent/enter", mw.EnsureSession(mw.RequireCSRF(handlers.RateLimit(loginLimiter, authHandler.ParentEnter))))
	mux.HandleFunc("POST /api/admin/check-org", mw.EnsureSession(mw.RequireCSRF(handlers.RateLimit(loginLimiter, authHandler.CheckOrgName))))
	mux.HandleFunc("POST /api/admin/login", mw.EnsureSession(mw.RequireCSRF(handlers.RateLimit(loginLimiter, authHandler.AdminLogin))))
	mux.HandleFunc("POST /api/logout", mw.EnsureSession(authHandler.Logout))
	mux.HandleFunc("GET /auth/{provider}/start", mw.EnsureSession(authHandler.StartOAuth))
	mux.HandleFunc("GET /auth/{provider}/callback", mw.EnsureSession(authHandler.OAuthCallback))

	// Live snapshot stream
	mux.HandleFunc("GET /api/stream", mw.EnsureSession(streamHandler.Snapshots))

	// Parent routes
	mux.HandleFunc("GET /api/family", mw.EnsureSession(parentHandler.Family))
	mux.HandleFunc("POST /api/kids/select", mw.EnsureSession(mw.RequireCSRF(parentHandler.SelectKid)))
	mux.HandleFunc("GET /api/kids/{kidID}/checklist", mw.EnsureSession(parentHandler.Checklist))
	mux.HandleFunc("POST /api/kids/{kidID}/goals/toggle", mw.EnsureSession(mw.RequireCSRF(parentHandler.ToggleGoal)))
	mux.HandleFunc("GET /api/kids/{kidID}/dashboard", mw.EnsureSession(parentHandler.Dashboard))
	mux.HandleFunc("POST /api/kids/{kidID}/log", mw.EnsureSession(mw.RequireCSRF(parentHandler.LogReading)))
	mux.HandleFunc("POST /api/kids/{kidID}/reading-test", mw.EnsureSession(mw.RequireCSRF(parentHandler.RecordReadingTest)))

	// Prize shop
	mux.HandleFunc("GET /api/prizes", mw.EnsureSession(prizesHandler.Shop))
	mux.HandleFunc("POST /api/prizes/redeem", mw.EnsureSession(mw.RequireCSRF(prizesHandler.Redeem)))
	mux.HandleFunc("GET /api/kids/{kidID}/redemptions", mw.EnsureSession(prizesHandler.History))

	// Admin routes
	mux.HandleFunc("GET /api/admin/families", mw.RequireAdmin(adminHandler.ListFamilies))
	mux.HandleFunc("POST /api/admin/families", mw.RequireAdmin(mw.RequireCSRF(adminHandler.UpsertFamily)))
	mux.HandleFunc("POST /api/admin/families/delete", mw.RequireAdmin(mw.RequireCSRF(adminHandler.DeleteFamily)))
	mux.HandleFunc("POST /api/admin/kids", mw.RequireAdmin(mw.RequireCSRF(adminHandler.AddKid)))
	mux.HandleFunc("POST /api/admin/kids/{kidID}/update", mw.RequireAdmin(mw.RequireCSRF(adminHandler.UpdateKid)))
	mux.HandleFunc("POST /api/admin/kids/{kidID}/delete", mw.RequireAdmin(mw.RequireCSRF(adminHandler.DeleteKid)))

	mux.HandleFunc("GET /api/admin/grade-goals", mw.RequireAdmin(adminHandler.ListGradeGoals))
	mux.HandleFunc("POST /api/admin/grade-goals", mw.RequireAdmin(mw.RequireCSRF(adminHandler.AddGradeGoal)))
	mux.HandleFunc("POST /api/admin/grade-goals/{goalID}/delete", mw.RequireAdmin(mw.RequireCSRF(adminHandler.DeleteGradeGoal)))
	mux.HandleFunc("GET /api/admin/kids/{kidID}/goals", mw.RequireAdmin(adminHandler.ListKidGoals))
	mux.HandleFunc("POST /api/admin/kids/{kidID}/goals", mw.RequireAdmin(mw.RequireCSRF(adminHandler.AddKidGoal)))
	mux.HandleFunc("POST /api/admin/goals/{goalID}/delete", mw.RequireAdmin(mw.RequireCSRF(adminHandler.DeleteKidGoal)))

	mux.HandleFunc("GET /api/admin/incentives", mw.RequireAdmin(adminHandler.ListIncentives))
	mux.HandleFunc("POST /api/admin/incentives", mw.RequireAdmin(mw.RequireCSRF(adminHandler.AddIncentive)))
	mux.HandleFunc("POST /api/admin/incentives/remove", mw.RequireAdmin(mw.RequireCSRF(adminHandler.RemoveIncentive)))

	mux.HandleFunc("GET /api/admin/schools", mw.RequireAdmin(adminHandler.ListSchools))
	mux.HandleFunc("POST /api/admin/schools", mw.RequireAdmin(mw.RequireCSRF(adminHandler.AddSchool)))
	mux.HandleFunc("POST /api/admin/schools/remove", mw.RequireAdmin(mw.RequireCSRF(adminHandler.RemoveSchool)))

	mux.HandleFunc("POST /api/admin/prizes", mw.RequireAdmin(mw.RequireCSRF(adminHandler.AddPrize)))
	mux.HandleFunc("POST /api/admin/prizes/{prizeID}/delete", mw.RequireAdmin(mw.RequireCSRF(adminHandler.DeletePrize)))

	mux.HandleFunc("GET /api/admin/reading-sessions", mw.RequireAdmin(adminHandler.ListReadingSessions))
	mux.HandleFunc("GET /api/admin/export/backup", mw.RequireAdmin(adminHandler.ExportBackup))
	mux.HandleFunc("POST /api/admin/import/backup", mw.RequireAdmin(mw.RequireCSRF(adminHandler.ImportBackup)))
	mux.HandleFunc("GET /api/admin/export/roster", mw.RequireAdmin(adminHandler.ExportCSV))
	mux.HandleFunc("POST /api/admin/reset", mw.RequireAdmin(mw.RequireCSRF(adminHandler.ResetAll)))
	mux.HandleFunc("POST /api/admin/organizations", mw.RequireAdmin(mw.RequireCSRF(adminHandler.UpsertOrganization)))

	handler := handlers.Logging(mux)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the snapshot stream holds connections open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
