package main

import (
	"log"
	"time"

	"github.com/agora-board/agora/config"
	"github.com/agora-board/agora/controllers"
	"github.com/agora-board/agora/models"
	"github.com/agora-board/agora/repository"
	"github.com/agora-board/agora/routes"
	"github.com/agora-board/agora/services"
	"github.com/agora-board/agora/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(
		&models.User{},
		&models.Discussion{},
		&models.DiscussionCategory{},
		&models.DiscussionImage{},
		&models.Bookmark{},
		&models.Like{},
		&models.Participant{},
		&models.Ban{},
	)
	rdb := utils.GetRedis()

	store := repository.NewDiscussionRepository(db)
	views := repository.NewRedisViewMarker(rdb, time.Duration(cfg.ViewDedupTTLSec)*time.Second)

	discussionService := services.NewDiscussionService(store, utils.Sugar)
	engagementService := services.NewEngagementService(store, utils.Sugar)
	listingService := services.NewListingService(store, views, cfg.PageSize, utils.Sugar)

	authController := controllers.NewAuthController(db)
	discussionController := controllers.NewDiscussionController(discussionService, engagementService, listingService)

	r := routes.SetupRouter(authController, discussionController)

	utils.Sugar.Infow("server starting", "port", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalw("server exited", "error", err)
	}
}
