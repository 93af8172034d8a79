// 手动导入演示数据脚本
//
// 创建一个演示教师账号和一份已发布的样例试卷，
// 仅用于本地联调或首次部署后的冒烟验证。
//
// 用法: go run scripts/seed_exams.go

package main

import (
	"log"
	"os"

	"github.com/Brij5/mocktestbuddy-sub001/internal/config"
	"github.com/Brij5/mocktestbuddy-sub001/internal/model"
	"github.com/Brij5/mocktestbuddy-sub001/internal/repository"
	"github.com/Brij5/mocktestbuddy-sub001/pkg/database"
	"github.com/Brij5/mocktestbuddy-sub001/pkg/logger"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	examRepo := repository.NewExamRepository(db)

	// 演示教师账号
	teacher, err := userRepo.FindByEmail("demo-teacher@example.com")
	if err == gorm.ErrRecordNotFound {
		hashed, err := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("生成密码失败: %v", err)
		}
		teacher = &model.User{
			Name:     "演示教师",
			Email:    "demo-teacher@example.com",
			Password: string(hashed),
			Role:     model.Teacher,
		}
		if err := userRepo.Create(teacher); err != nil {
			log.Fatalf("创建演示教师失败: %v", err)
		}
		log.Println("已创建演示教师账号 demo-teacher@example.com / demo-password")
	} else if err != nil {
		log.Fatalf("查询演示教师失败: %v", err)
	}

	// 样例试卷
	exams, _, err := examRepo.List(1, 1, false)
	if err != nil {
		log.Fatalf("查询试卷失败: %v", err)
	}
	if len(exams) > 0 {
		log.Println("已存在试卷，跳过导入")
		return
	}

	exam := &model.Exam{
		CreatorID:       teacher.ID,
		Title:           "数学摸底测试",
		Description:     "代数与几何基础，共 5 题，答错每题扣 1 分。",
		DurationSeconds: 1800,
		NegativeMarking: 1,
	}
	questions := []model.ExamQuestion{
		{Topic: "Algebra", Content: "2x + 3 = 11，x = ?", Options: `["2","3","4","5"]`, CorrectAnswer: "4", Marks: 10, Order: 1},
		{Topic: "Algebra", Content: "(x+1)(x-1) 展开后是？", Options: `["x²-1","x²+1","x²-x","x²+x"]`, CorrectAnswer: "x²-1", Marks: 10, Order: 2},
		{Topic: "Algebra", Content: "若 3x = 12，则 x² = ?", Options: `["9","12","16","8"]`, CorrectAnswer: "16", Marks: 10, Order: 3},
		{Topic: "Geometry", Content: "三角形内角和是多少度？", Options: `["90","180","270","360"]`, CorrectAnswer: "180", Marks: 10, Order: 4},
		{Topic: "Geometry", Content: "半径为 r 的圆面积是？", Options: `["πr","2πr","πr²","2πr²"]`, CorrectAnswer: "πr²", Marks: 10, Order: 5},
	}
	var total float64
	for _, q := range questions {
		total += q.Marks
	}
	exam.TotalMarks = total

	if err := examRepo.CreateWithQuestions(exam, questions); err != nil {
		log.Fatalf("创建样例试卷失败: %v", err)
	}
	if err := examRepo.SetPublished(exam.ID, true); err != nil {
		log.Fatalf("发布样例试卷失败: %v", err)
	}

	log.Printf("已导入并发布样例试卷 %s", exam.ID)
}
