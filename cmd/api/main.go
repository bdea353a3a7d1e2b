package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classtrack/internal/apperr"
	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/classes"
	"classtrack/internal/config"
	"classtrack/internal/courses"
	"classtrack/internal/enrollment"
	"classtrack/internal/helpbot"
	"classtrack/internal/httpmiddleware"
	"classtrack/internal/mailer"
	"classtrack/internal/metrics"
	"classtrack/internal/queue"
	"classtrack/internal/store"
	"classtrack/internal/subjects"
	"classtrack/internal/token"
	"classtrack/internal/users"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

// mailEnqueuer adapts the queue into the user service's notifier.
type mailEnqueuer struct {
	q queue.Queue
}

func (m mailEnqueuer) EnqueueMail(ctx context.Context, msg mailer.Message) error {
	qm, err := queue.NewMessage("credential_email", msg)
	if err != nil {
		return err
	}
	return m.q.Publish(ctx, qm)
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable, falling back to in-memory store: %v", err)
		db = nil
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" || db == nil {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classtrack:mail")
	}

	var (
		userRepo    users.Repository
		courseRepo  courses.Repository
		subjectRepo subjects.Repository
		classRepo   classes.Repository
		enrollRepo  enrollment.Repository
		attRepo     attendance.Repository
	)
	if db != nil {
		if err := db.Migrate(context.Background()); err != nil {
			return err
		}
		userRepo = users.NewPGRepository(db.Client)
		courseRepo = courses.NewPGRepository(db.Client)
		subjectRepo = subjects.NewPGRepository(db.Client)
		classRepo = classes.NewPGRepository(db.Client)
		enrollRepo = enrollment.NewPGRepository(db.Client)
		attRepo = attendance.NewPGRepository(db.Client)
	} else {
		userRepo = users.NewMemRepository()
		courseRepo = courses.NewMemRepository()
		subjectRepo = subjects.NewMemRepository()
		classRepo = classes.NewMemRepository()
		enrollRepo = enrollment.NewMemRepository()
		attRepo = attendance.NewMemRepository()
	}

	codec := token.NewCodec(cfg.TokenSecret)
	userSvc := users.NewService(userRepo, mailEnqueuer{q: q})
	courseSvc := courses.NewService(courseRepo)
	subjectSvc := subjects.NewService(subjectRepo, courseSvc, userSvc)
	classSvc := classes.NewService(classRepo, subjectSvc, codec, cfg.CheckinBase)
	ledger := enrollment.NewService(enrollRepo)
	attSvc := attendance.NewService(attRepo, classSvc, ledger, codec, attendance.Options{
		OnTimeGrace: cfg.OnTimeGrace,
		LateCutoff:  cfg.LateCutoff,
		TokenMaxAge: cfg.TokenMaxAge,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/register", func(c *gin.Context) {
		var req struct {
			FirstName string  `json:"first_name" binding:"required"`
			LastName  string  `json:"last_name" binding:"required"`
			Email     string  `json:"email" binding:"required"`
			Password  string  `json:"password" binding:"required"`
			Role      string  `json:"role" binding:"required"`
			CourseID  *string `json:"course_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		u, err := userSvc.Register(c.Request.Context(), users.RegisterInput{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Password:  req.Password,
			Role:      users.Role(req.Role),
			CourseID:  req.CourseID,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, u)
	})

	r.POST("/v1/auth/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		u, err := userSvc.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondErr(c, err)
			return
		}

		id := auth.Identity{UserID: u.ID, Role: u.Role}
		if u.Role == users.RoleTeacher {
			if t, err := userSvc.TeacherFor(c.Request.Context(), u.ID); err == nil && t != nil {
				id.TeacherID = &t.ID
			}
		}

		tok, exp, err := auth.Issue(id, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"access_token": tok,
			"expires_at":   exp.Unix(),
			"identity": gin.H{
				"id":         u.ID,
				"role":       u.Role,
				"name":       u.FullName(),
				"teacher_id": id.TeacherID,
			},
		})
	})

	authed := r.Group("/v1", auth.RequireAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	authed.GET("/users/profile", func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		u, err := userSvc.Profile(c.Request.Context(), id.UserID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	})

	authed.GET("/users", auth.RequireRoles(), func(c *gin.Context) {
		list, err := userSvc.List(c.Request.Context(), users.Role(c.Query("role")))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": list})
	})

	// courses
	authed.GET("/courses", auth.RequireRoles(users.RoleTeacher), func(c *gin.Context) {
		list, err := courseSvc.List(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"courses": list})
	})

	authed.POST("/courses", auth.RequireRoles(), func(c *gin.Context) {
		var req struct {
			Name  string `json:"name" binding:"required"`
			Level string `json:"level" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		course, err := courseSvc.Create(c.Request.Context(), req.Name, req.Level)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, course)
	})

	authed.PUT("/courses/:id", auth.RequireRoles(), func(c *gin.Context) {
		var req struct {
			Name  string `json:"name"`
			Level string `json:"level"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		course, err := courseSvc.Update(c.Request.Context(), c.Param("id"), req.Name, req.Level)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, course)
	})

	authed.DELETE("/courses/:id", auth.RequireRoles(), func(c *gin.Context) {
		if err := courseSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})

	// subjects
	authed.GET("/subjects", auth.RequireRoles(users.RoleTeacher), func(c *gin.Context) {
		list, err := subjectSvc.List(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"subjects": list})
	})

	authed.GET("/subjects/search", func(c *gin.Context) {
		list, err := subjectSvc.Search(c.Request.Context(), c.Query("q"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"subjects": list})
	})

	authed.GET("/subjects/mine", auth.RequireRoles(users.RoleTeacher), func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		if id.TeacherID == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "teacher identity not found"})
			return
		}
		list, err := subjectSvc.ByTeacher(c.Request.Context(), *id.TeacherID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"subjects": list})
	})

	authed.GET("/subjects/enrolled", auth.RequireRoles(users.RoleStudent), func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		student, err := userSvc.StudentFor(c.Request.Context(), id.UserID)
		if err != nil {
			respondErr(c, err)
			return
		}
		enrollments, err := ledger.ForStudent(c.Request.Context(), student.ID)
		if err != nil {
			respondErr(c, err)
			return
		}
		out := make([]gin.H, 0, len(enrollments))
		for _, e := range enrollments {
			entry := gin.H{"enrollment_id": e.ID, "subject_id": e.SubjectID, "enrolled_at": e.EnrolledAt}
			if sub, err := subjectSvc.Get(c.Request.Context(), e.SubjectID); err == nil && sub != nil {
				entry["subject_name"] = sub.Name
			}
			out = append(out, entry)
		}
		c.JSON(http.StatusOK, gin.H{"subjects": out})
	})

	authed.POST("/subjects", auth.RequireRoles(), func(c *gin.Context) {
		var req struct {
			Name      string  `json:"name" binding:"required"`
			CourseID  string  `json:"course_id" binding:"required"`
			TeacherID *string `json:"teacher_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sub, err := subjectSvc.Create(c.Request.Context(), req.Name, req.CourseID, req.TeacherID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, sub)
	})

	authed.PUT("/subjects/:id", auth.RequireRoles(), func(c *gin.Context) {
		var req struct {
			Name      string  `json:"name"`
			TeacherID *string `json:"teacher_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sub, err := subjectSvc.Update(c.Request.Context(), c.Param("id"), req.Name, req.TeacherID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sub)
	})

	authed.DELETE("/subjects/:id", auth.RequireRoles(), func(c *gin.Context) {
		if err := subjectSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})

	// class sessions
	authed.POST("/classes", auth.RequireRoles(users.RoleTeacher), func(c *gin.Context) {
		var req struct {
			SubjectID string `json:"subject_id" binding:"required"`
			Date      string `json:"date" binding:"required"`
			Start     string `json:"start_time" binding:"required"`
			End       string `json:"end_time" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, _ := auth.FromContext(c)
		if id.TeacherID == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "teacher identity not found"})
			return
		}
		session, err := classSvc.Create(c.Request.Context(), *id.TeacherID, req.SubjectID, classes.Schedule{
			Date: req.Date, Start: req.Start, End: req.End,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, session)
	})

	authed.GET("/classes", auth.RequireRoles(users.RoleTeacher), func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		teacherID := c.Query("teacher_id")
		// teachers only ever see their own sessions
		if id.Role == users.RoleTeacher {
			if id.TeacherID == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "teacher identity not found"})
				return
			}
			teacherID = *id.TeacherID
		}
		list, err := classSvc.List(c.Request.Context(), c.Query("subject_id"), teacherID, c.Query("date"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"classes": list})
	})

	authed.PUT("/classes/:id", auth.RequireRoles(users.RoleTeacher), func(c *gin.Context) {
		var req struct {
			Date  string `json:"date"`
			Start string `json:"start_time"`
			End   string `json:"end_time"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, _ := auth.FromContext(c)
		session, err := classSvc.Update(c.Request.Context(), c.Param("id"), actorTeacherID(id), classes.Schedule{
			Date: req.Date, Start: req.Start, End: req.End,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	})

	authed.DELETE("/classes/:id", auth.RequireRoles(users.RoleTeacher), func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		if err := classSvc.Delete(c.Request.Context(), c.Param("id"), actorTeacherID(id)); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})

	authed.GET("/classes/:id/token", auth.RequireRoles(users.RoleTeacher), func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		tok, scanURL, err := classSvc.IssueToken(c.Request.Context(), c.Param("id"), actorTeacherID(id))
		if err != nil {
			respondErr(c, err)
			return
		}
		metrics.TokensIssued.Inc()
		c.JSON(http.StatusOK, gin.H{"token": tok, "url": scanURL})
	})

	// enrollments
	authed.POST("/enrollments", auth.RequireRoles(users.RoleTeacher), func(c *gin.Context) {
		var req struct {
			StudentID string `json:"student_id" binding:"required"`
			SubjectID string `json:"subject_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		e, err := ledger.Enroll(c.Request.Context(), req.StudentID, req.SubjectID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, e)
	})

	authed.GET("/enrollments", auth.RequireRoles(users.RoleTeacher), func(c *gin.Context) {
		list, err := ledger.ListActive(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"enrollments": list})
	})

	authed.GET("/enrollments/student/:id", func(c *gin.Context) {
		list, err := ledger.ForStudent(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"enrollments": list})
	})

	authed.DELETE("/enrollments/:id", auth.RequireRoles(users.RoleTeacher), func(c *gin.Context) {
		id, _ := auth.FromContext(c)
		e, err := ledger.Withdraw(c.Request.Context(), c.Param("id"), actorTeacherID(id))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	})

	// attendance
	authed.POST("/attendance/records", auth.RequireRoles(users.RoleTeacher), func(c *gin.Context) {
		var req struct {
			StudentID      string `json:"student_id" binding:"required"`
			ClassSessionID string `json:"class_session_id" binding:"required"`
			Method         string `json:"method"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, created, err := attSvc.Record(c.Request.Context(), req.StudentID, req.ClassSessionID, req.Method)
		if err != nil {
			respondErr(c, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
			metrics.CheckinsRecorded.WithLabelValues(rec.Method).Inc()
		} else {
			metrics.CheckinsDuplicate.Inc()
		}
		c.JSON(status, gin.H{"record": rec, "created": created})
	})

	authed.POST("/attendance/scan", auth.RequireRoles(users.RoleStudent), func(c *gin.Context) {
		var req struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, _ := auth.FromContext(c)
		student, err := userSvc.StudentFor(c.Request.Context(), id.UserID)
		if err != nil {
			respondErr(c, err)
			return
		}
		rec, created, err := attSvc.RecordViaToken(c.Request.Context(), student.ID, req.Token)
		if err != nil {
			if apperr.IsKind(err, apperr.KindUnauthorized) {
				metrics.TokenRejections.Inc()
			}
			respondErr(c, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
			metrics.CheckinsRecorded.WithLabelValues(rec.Method).Inc()
		} else {
			metrics.CheckinsDuplicate.Inc()
		}
		c.JSON(status, gin.H{"record": rec, "created": created})
	})

	authed.GET("/attendance/summary/:class_session_id", auth.RequireRoles(users.RoleTeacher), func(c *gin.Context) {
		sum, err := attSvc.Summarize(c.Request.Context(), c.Param("class_session_id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"present": sum.Present,
			"late":    sum.Late,
			"absent":  sum.Absent,
			"counts": gin.H{
				"present": len(sum.Present),
				"late":    len(sum.Late),
				"absent":  len(sum.Absent),
			},
		})
	})

	authed.GET("/attendance/report", auth.RequireRoles(), func(c *gin.Context) {
		f := attendance.Filter{
			StudentID: c.Query("student_id"),
			SubjectID: c.Query("subject_id"),
		}
		if v := c.Query("from"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp, want RFC3339"})
				return
			}
			f.From = &t
		}
		if v := c.Query("to"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp, want RFC3339"})
				return
			}
			f.To = &t
		}
		records, err := attSvc.Report(c.Request.Context(), f)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	})

	authed.POST("/helpbot/message", func(c *gin.Context) {
		var req struct {
			Message string `json:"message" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, _ := auth.FromContext(c)
		c.JSON(http.StatusOK, gin.H{"reply": helpbot.Reply(id.Role, helpbot.DetectIntent(req.Message))})
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// respondErr maps a typed outcome onto an HTTP answer.
func respondErr(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
}

// actorTeacherID is the teacher acting, or nil for an administrator.
// A teacher without a teacher row gets an id that matches nothing.
func actorTeacherID(id auth.Identity) *string {
	if id.Role == users.RoleAdministrator {
		return nil
	}
	if id.TeacherID != nil {
		return id.TeacherID
	}
	none := ""
	return &none
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
