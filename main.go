package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/bensuskins/command-center/internal/assistant"
	"github.com/bensuskins/command-center/internal/calendar"
	"github.com/bensuskins/command-center/internal/config"
	"github.com/bensuskins/command-center/internal/database"
	"github.com/bensuskins/command-center/internal/lists"
	"github.com/bensuskins/command-center/internal/logging"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/preferences"
	"github.com/bensuskins/command-center/internal/quiz"
	"github.com/bensuskins/command-center/internal/realtime"
	"github.com/bensuskins/command-center/internal/repository"
	"github.com/bensuskins/command-center/internal/server"
	"github.com/bensuskins/command-center/internal/services"
	"github.com/bensuskins/command-center/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	syncLogs, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.Error("setting up logging", "error", err)
		os.Exit(1)
	}
	defer syncLogs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	subscriptionRepo := repository.NewICalSubscriptionRepository(db)
	tokenRepo := repository.NewAPITokenRepository(db)

	local := openLocal(cfg, repository.NewKeyValueRepository(db))
	documents, closeDocuments := openDocuments(ctx, cfg)
	defer closeDocuments()

	authService, err := services.NewAuthService(ctx, cfg, userRepo)
	if err != nil {
		return err
	}

	counter := assistant.NewCounter(ctx, local)
	assistantOptions := assistant.OptionsFromConfig(cfg)
	client := assistant.NewClient(assistantOptions, counter)
	directOptions := assistantOptions
	directOptions.UseProxy = false
	directClient := assistant.NewClient(directOptions, counter)
	if !client.Configured() {
		slog.Warn("AI completions not configured, assistant features are disabled")
	}

	groceryList, err := lists.New[models.GroceryItem](ctx, local, documents, lists.Options{
		Key: storage.KeyGroceryItems, Collection: services.GroceryCollection, UseRemote: cfg.UseFirestore,
	})
	if err != nil {
		return err
	}
	defer groceryList.Close()

	vehicleList, err := lists.New[models.Vehicle](ctx, local, documents, lists.Options{
		Key: storage.KeyVehicles, Collection: services.VehicleCollection, UseRemote: cfg.UseFirestore,
	})
	if err != nil {
		return err
	}
	defer vehicleList.Close()

	maintenanceList, err := lists.New[models.MaintenanceRecord](ctx, local, documents, lists.Options{
		Key: storage.KeyMaintenanceRecords, Collection: services.MaintenanceCollection, UseRemote: cfg.UseFirestore,
	})
	if err != nil {
		return err
	}
	defer maintenanceList.Close()

	restaurantList, err := lists.New[models.Restaurant](ctx, local, documents, lists.Options{
		Key: storage.KeyRestaurants, Collection: services.RestaurantCollection, UseRemote: cfg.UseFirestore,
	})
	if err != nil {
		return err
	}
	defer restaurantList.Close()

	groceryService := services.NewGroceryService(groceryList, client)
	vehicleService := services.NewVehicleService(vehicleList, maintenanceList)
	restaurantService := services.NewRestaurantService(restaurantList, client, cfg.DefaultCity)
	recipeService := services.NewRecipeService(recipeRepo, client)

	feeds := calendar.NewFeedSource(subscriptionRepo)
	calendarService := calendar.NewService(local, calendar.OptionsFromConfig(cfg), feeds)
	if calendarService.Restore(ctx) {
		slog.Info("restored google calendar connection")
	} else if err := calendarService.Refresh(ctx); err != nil {
		slog.Warn("loading calendar feeds", "error", err)
	}

	pools, err := quiz.LoadPools()
	if err != nil {
		return err
	}
	links, err := preferences.LoadLinks()
	if err != nil {
		return err
	}
	themes := preferences.NewThemes(local)

	hub := realtime.NewHub()
	hub.SetSnapshotProvider(func() map[string]any {
		return map[string]any{
			realtime.MessageGrocery:       groceryService.Items(),
			realtime.MessageVehicles:      vehicleService.Vehicles(),
			realtime.MessageMaintenance:   vehicleService.Records(),
			realtime.MessageRestaurants:   restaurantService.Restaurants(),
			realtime.MessageAICalls:       counter.Count(),
			realtime.MessageCalendar:      calendarService.Events(),
			realtime.MessageCalendarState: calendarService.State(),
		}
	})
	unsubscribes := []func(){
		realtime.Forward(hub, realtime.MessageGrocery, groceryService.Subscribe),
		realtime.Forward(hub, realtime.MessageVehicles, vehicleService.SubscribeVehicles),
		realtime.Forward(hub, realtime.MessageMaintenance, vehicleService.SubscribeRecords),
		realtime.Forward(hub, realtime.MessageRestaurants, restaurantService.Subscribe),
		realtime.Forward(hub, realtime.MessageAICalls, counter.Subscribe),
		realtime.Forward(hub, realtime.MessageCalendar, calendarService.SubscribeEvents),
		realtime.Forward(hub, realtime.MessageCalendarState, calendarService.SubscribeState),
	}
	defer func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}()
	go hub.Run(ctx)

	scheduler, err := startScheduler(ctx, cfg, calendarService, feeds)
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	srv := server.New(cfg, server.Dependencies{
		AuthService:       authService,
		GroceryService:    groceryService,
		VehicleService:    vehicleService,
		RestaurantService: restaurantService,
		RecipeService:     recipeService,
		CalendarService:   calendarService,
		Feeds:             feeds,
		Assistant:         client,
		DirectAssistant:   directClient,
		Counter:           counter,
		Themes:            themes,
		Links:             links,
		Quizzes:           quiz.NewStore(pools),
		Hub:               hub,
		UserRepo:          userRepo,
		RecipeRepo:        recipeRepo,
		SubscriptionRepo:  subscriptionRepo,
		TokenRepo:         tokenRepo,
	})
	return srv.Start(ctx)
}

func openLocal(cfg config.Config, keyValues repository.KeyValueRepository) *storage.Local {
	if cfg.LocalStore == config.LocalStoreDisk {
		slog.Info("using disk local store", "path", cfg.LocalStorePath)
		return storage.NewLocal(storage.NewDiskStore(cfg.LocalStorePath))
	}
	return storage.NewLocal(storage.NewSQLiteStore(keyValues))
}

// openDocuments connects the remote document store when configured. An
// unconfigured or unreachable store leaves every list in local mode.
func openDocuments(ctx context.Context, cfg config.Config) (*storage.Documents, func()) {
	if !cfg.FirestoreConfigured() {
		if cfg.UseFirestore {
			slog.Warn("USE_FIRESTORE is set but FIREBASE_PROJECT_ID is missing")
		}
		return storage.NewDocuments(nil), func() {}
	}

	driver, err := storage.NewFirestoreDriver(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
	if err != nil {
		slog.Error("connecting to firestore", "error", err)
		return storage.NewDocuments(nil), func() {}
	}
	return storage.NewDocuments(driver), func() {
		if err := driver.Close(); err != nil {
			slog.Warn("closing firestore", "error", err)
		}
	}
}

func startScheduler(ctx context.Context, cfg config.Config, calendarService *calendar.Service, feeds *calendar.FeedSource) (*cron.Cron, error) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(cfg.CalendarRefreshCron, func() {
		if err := feeds.RefreshAll(ctx); err != nil {
			slog.Warn("refreshing calendar feeds", "error", err)
		}
		if err := calendarService.Refresh(ctx); err != nil {
			slog.Warn("refreshing calendar", "error", err)
		}
	})
	if err != nil {
		return nil, err
	}
	scheduler.Start()
	return scheduler, nil
}
