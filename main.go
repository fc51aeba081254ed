package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"MindMateGo/config"
	"MindMateGo/models"
	"MindMateGo/store"
	"MindMateGo/utils"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mindmate",
	Short: "MindMate wellness API",
	// 不带子命令时启动服务
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the MySQL schema",
	RunE:  runMigrate,
}

var seedUserID string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert a week of sample data for one user",
	RunE:  runSeed,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "Directory containing the .env file")
	seedCmd.Flags().StringVar(&seedUserID, "user", "demo-user", "User ID (token subject) to seed")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

// setup 加载配置并初始化日志
func setup() (config.Config, error) {
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		return conf, fmt.Errorf("无法加载配置: %w", err)
	}
	if err := config.InitLogger(conf); err != nil {
		return conf, fmt.Errorf("无法初始化日志: %w", err)
	}
	return conf, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	conf, err := setup()
	if err != nil {
		return err
	}
	defer config.Logger.Sync()

	a, err := newApp(cmd.Context(), conf)
	if err != nil {
		return err
	}
	defer a.Close()

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:              ":" + conf.ServerPort,
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		config.Logger.Infow("启动服务器", "port", conf.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 等待中断信号以实现优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("服务器启动失败: %w", err)
		}
	case <-quit:
	}
	config.Logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}
	config.Logger.Info("服务器已关闭")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	conf, err := setup()
	if err != nil {
		return err
	}
	defer config.Logger.Sync()

	if conf.StorageBackend != "mysql" {
		config.Logger.Infow("当前存储后端无需迁移", "storage", conf.StorageBackend)
		return nil
	}
	db, err := config.InitDB(conf)
	if err != nil {
		return fmt.Errorf("无法初始化数据库: %w", err)
	}
	gs := store.NewGormStore(db)
	defer gs.Close()

	if err := gs.AutoMigrate(); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	config.Logger.Info("数据库迁移完成")
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	conf, err := setup()
	if err != nil {
		return err
	}
	defer config.Logger.Sync()

	ctx := cmd.Context()
	st, err := openStore(ctx, conf)
	if err != nil {
		return err
	}
	defer st.Close()
	if gs, ok := st.(*store.GormStore); ok {
		if err := gs.AutoMigrate(); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	if err := seed(ctx, st, seedUserID, time.Now(), conf.Location()); err != nil {
		return err
	}
	config.Logger.Infow("示例数据已写入", "userId", seedUserID)

	if conf.JWTSecret != "" && !conf.IsProduction() {
		token, err := utils.GenerateToken(conf.JWTSecret, seedUserID, "Demo User", "demo@example.com", 7*24*time.Hour)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
	}
	return nil
}

var seedMoods = []models.MoodLevel{
	models.MoodSad, models.MoodNeutral, models.MoodNeutral, models.MoodHappy,
	models.MoodSad, models.MoodHappy, models.MoodVeryHappy,
}

// seed 写入最近一周的打卡和会话
func seed(ctx context.Context, st store.Store, userID string, now time.Time, loc *time.Location) error {
	user, err := st.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		user = models.NewUser(userID, "Demo User", "demo@example.com", now)
	} else if err != nil {
		return err
	}
	user.StreakCount = len(seedMoods)
	last := now
	user.LastCheckIn = &last
	if err := st.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	for i, mood := range seedMoods {
		at := now.AddDate(0, 0, i-len(seedMoods)+1)
		day := utils.DayKey(at, loc)

		entryID := utils.GenerateID()
		if existing, err := st.GetMood(ctx, userID, day); err == nil {
			entryID = existing.ID
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("seed mood %s: %w", day, err)
		}
		entry := &models.MoodEntry{
			ID:        entryID,
			UserID:    userID,
			Day:       day,
			Factors:   []string{"sleep"},
			Date:      at,
			CreatedAt: at,
			UpdatedAt: at,
		}
		entry.SetMood(mood)
		if err := st.SaveMood(ctx, entry); err != nil {
			return fmt.Errorf("seed mood %s: %w", day, err)
		}

		// 已写入的示例会话保持不变，重复执行不会违反会话唯一约束
		sessionID := "seed-" + day
		if _, err := st.GetChat(ctx, userID, sessionID); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("seed chat %s: %w", day, err)
		}
		chat := models.NewChat(utils.GenerateID(), userID, sessionID, at)
		chat.Append(utils.GenerateID(), models.RoleUser, "Here is how today went.", at)
		chat.Append(utils.GenerateID(), models.RoleAssistant, "Thanks for sharing. How are you feeling about it now?", at)
		m := mood
		chat.MoodDetected = &m
		chat.Topics = []string{"daily life"}
		if err := st.SaveChat(ctx, chat); err != nil {
			return fmt.Errorf("seed chat %s: %w", day, err)
		}
	}
	return nil
}
