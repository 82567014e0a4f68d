package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bensuskins/command-center/internal/assistant"
	"github.com/bensuskins/command-center/internal/calendar"
	"github.com/bensuskins/command-center/internal/config"
	"github.com/bensuskins/command-center/internal/handlers"
	"github.com/bensuskins/command-center/internal/middleware"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/preferences"
	"github.com/bensuskins/command-center/internal/quiz"
	"github.com/bensuskins/command-center/internal/realtime"
	"github.com/bensuskins/command-center/internal/repository"
	"github.com/bensuskins/command-center/internal/services"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

// Dependencies are the long-lived services the routes are built from.
type Dependencies struct {
	AuthService       *services.AuthService
	GroceryService    *services.GroceryService
	VehicleService    *services.VehicleService
	RestaurantService *services.RestaurantService
	RecipeService     *services.RecipeService
	CalendarService   *calendar.Service
	Feeds             *calendar.FeedSource
	Assistant         *assistant.Client
	DirectAssistant   *assistant.Client
	Counter           *assistant.Counter
	Themes            *preferences.Themes
	Links             []preferences.QuickLink
	Quizzes           *quiz.Store
	Hub               *realtime.Hub
	UserRepo          repository.UserRepository
	RecipeRepo        repository.RecipeRepository
	SubscriptionRepo  repository.ICalSubscriptionRepository
	TokenRepo         repository.APITokenRepository
}

type Server struct {
	router *chi.Mux
	config config.Config
}

func New(cfg config.Config, deps Dependencies) *Server {
	authService := deps.AuthService

	authHandler := handlers.NewAuthHandler(authService)
	adminHandler := handlers.NewAdminHandler(deps.UserRepo)
	tokenHandler := handlers.NewTokenHandler(deps.TokenRepo)
	dashboardHandler := handlers.NewDashboardHandler(deps.GroceryService, deps.VehicleService, deps.CalendarService, deps.Counter, deps.Themes)
	groceryHandler := handlers.NewGroceryHandler(deps.GroceryService)
	vehicleHandler := handlers.NewVehicleHandler(deps.VehicleService)
	restaurantHandler := handlers.NewRestaurantHandler(deps.RestaurantService)
	recipeHandler := handlers.NewRecipeHandler(deps.RecipeRepo, deps.RecipeService, deps.GroceryService)
	assistantHandler := handlers.NewAssistantHandler(deps.Assistant, deps.DirectAssistant, deps.Counter)
	calendarHandler := handlers.NewCalendarHandler(deps.CalendarService, authService)
	subscriptionsHandler := handlers.NewICalSubscriptionsHandler(deps.SubscriptionRepo, deps.Feeds, deps.CalendarService)
	quizHandler := handlers.NewQuizHandler(deps.Quizzes)
	preferencesHandler := handlers.NewPreferencesHandler(deps.Themes, deps.Links)

	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Compress(5))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	router.Get("/login", authHandler.Login)
	router.Get("/auth/callback", authHandler.Callback)
	router.Get("/logout", authHandler.Logout)

	// Machine callers use admin-issued scoped tokens instead of a session.
	router.With(middleware.RequireAPIToken(deps.TokenRepo, deps.UserRepo, models.ScopeAIProxy)).Post("/api/ai/proxy", assistantHandler.Proxy)
	router.With(middleware.RequireAPIToken(deps.TokenRepo, deps.UserRepo, models.ScopeCalendarFeed)).Get("/calendar.ics", calendarHandler.Export)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(authService))

		r.Handle("/ws", deps.Hub)

		r.Get("/api/me", authHandler.Me)
		r.Get("/api/dashboard", dashboardHandler.Dashboard)

		r.Route("/api/grocery", func(r chi.Router) {
			r.Get("/", groceryHandler.List)
			r.Post("/", groceryHandler.Add)
			r.Get("/sorted", groceryHandler.Sorted)
			r.Get("/locations", groceryHandler.Locations)
			r.Get("/suggestions", groceryHandler.Suggestions)
			r.Post("/clear-completed", groceryHandler.ClearCompleted)
			r.Post("/migrate", groceryHandler.Migrate)
			r.Post("/{id}/toggle", groceryHandler.Toggle)
			r.Get("/{id}/location", groceryHandler.Location)
			r.Patch("/{id}", groceryHandler.Update)
			r.Delete("/{id}", groceryHandler.Delete)
		})

		r.Route("/api/vehicles", func(r chi.Router) {
			r.Get("/", vehicleHandler.List)
			r.Post("/", vehicleHandler.Create)
			r.Get("/reminders", vehicleHandler.Reminders)
			r.Post("/migrate", vehicleHandler.Migrate)
			r.Get("/{id}", vehicleHandler.Get)
			r.Patch("/{id}", vehicleHandler.Update)
			r.Delete("/{id}", vehicleHandler.Delete)
			r.Get("/{id}/maintenance", vehicleHandler.Maintenance)
			r.Post("/{id}/maintenance", vehicleHandler.AddMaintenance)
		})
		r.Patch("/api/maintenance/{id}", vehicleHandler.UpdateMaintenance)
		r.Delete("/api/maintenance/{id}", vehicleHandler.DeleteMaintenance)

		r.Route("/api/restaurants", func(r chi.Router) {
			r.Get("/", restaurantHandler.List)
			r.Post("/", restaurantHandler.Create)
			r.Post("/suggest", restaurantHandler.Suggest)
			r.Post("/migrate", restaurantHandler.Migrate)
			r.Patch("/{id}", restaurantHandler.Update)
			r.Post("/{id}/favorite", restaurantHandler.ToggleFavorite)
			r.Delete("/{id}", restaurantHandler.Delete)
		})

		r.Route("/api/recipes", func(r chi.Router) {
			r.Get("/", recipeHandler.List)
			r.Post("/", recipeHandler.Create)
			r.Post("/suggest", recipeHandler.Suggest)
			r.Post("/import", recipeHandler.Import)
			r.Post("/groceries", recipeHandler.Groceries)
			r.Post("/meal-plan", recipeHandler.MealPlan)
			r.Get("/{id}", recipeHandler.Get)
			r.Put("/{id}", recipeHandler.Update)
			r.Post("/{id}/favorite", recipeHandler.ToggleFavorite)
			r.Delete("/{id}", recipeHandler.Delete)
		})

		r.Route("/api/ai", func(r chi.Router) {
			r.Post("/chat", assistantHandler.Chat)
			r.Post("/cooking-help", assistantHandler.CookingHelp)
			r.Get("/welcome", assistantHandler.Welcome)
			r.Get("/usage", assistantHandler.Usage)
			r.Post("/usage/reset", assistantHandler.ResetUsage)
		})

		r.Get("/calendar/connect", calendarHandler.Connect)
		r.Get("/calendar/callback", calendarHandler.Callback)
		r.Route("/api/calendar", func(r chi.Router) {
			r.Get("/status", calendarHandler.Status)
			r.Post("/disconnect", calendarHandler.Disconnect)
			r.Post("/refresh", calendarHandler.Refresh)
			r.Delete("/error", calendarHandler.ClearError)
			r.Get("/events", calendarHandler.Events)
			r.Get("/day", calendarHandler.Day)
			r.Get("/week", calendarHandler.Week)

			r.Get("/subscriptions", subscriptionsHandler.List)
			r.Post("/subscriptions", subscriptionsHandler.Create)
			r.Delete("/subscriptions/{id}", subscriptionsHandler.Delete)
			r.Post("/subscriptions/{id}/refresh", subscriptionsHandler.Refresh)
		})

		r.Route("/api/quiz", func(r chi.Router) {
			r.Get("/categories", quizHandler.Categories)
			r.Post("/sessions", quizHandler.CreateSession)
			r.Get("/sessions/{id}", quizHandler.GetSession)
			r.Post("/sessions/{id}/category", quizHandler.SelectCategory)
			r.Post("/sessions/{id}/next", quizHandler.Next)
			r.Post("/sessions/{id}/answer", quizHandler.Answer)
			r.Post("/sessions/{id}/restart", quizHandler.Restart)
			r.Delete("/sessions/{id}", quizHandler.DeleteSession)
		})

		r.Get("/api/preferences/theme", preferencesHandler.Theme)
		r.Put("/api/preferences/theme", preferencesHandler.SetTheme)
		r.Post("/api/preferences/theme/toggle", preferencesHandler.ToggleTheme)
		r.Get("/api/links", preferencesHandler.Links)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/api/admin/users", adminHandler.Users)
			r.Post("/api/admin/users/{id}/promote", adminHandler.PromoteUser)
			r.Post("/api/admin/users/{id}/demote", adminHandler.DemoteUser)
			r.Get("/api/admin/tokens", tokenHandler.List)
			r.Post("/api/admin/tokens", tokenHandler.Create)
			r.Delete("/api/admin/tokens/{id}", tokenHandler.Delete)
		})
	})

	server := &Server{
		router: router,
		config: cfg,
	}

	return server
}

func (server *Server) Handler() http.Handler {
	return server.router
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (server *Server) Start(ctx context.Context) error {
	address := ":" + server.config.Port
	httpServer := &http.Server{
		Addr:              address,
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		slog.Info("starting server", "address", address)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
