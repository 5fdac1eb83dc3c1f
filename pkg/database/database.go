package database

import (
	"fmt"
	"log"
	"online_edu_backend/internal/config"
	"online_edu_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
		// 重复键冲突需要翻译成 gorm.ErrDuplicatedKey，
		// 尝试唯一性与答案去重都依赖这一点
		TranslateError: true,
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	return db, nil
}

// Migrate 建表。测试环境用 sqlite 复用同一份迁移。
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Topic{},
		&model.Lesson{},
		&model.Question{},
		&model.Test{},
		&model.TestQuestion{},
		&model.TestAttempt{},
		&model.TestAnswer{},
		&model.LessonProgress{},
		&model.Certificate{},
	)
	if err != nil {
		return err
	}

	return nil
}
