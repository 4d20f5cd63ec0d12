package api

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/api/apistrings"
	"github.com/SwiftFiat/SwiftFiat-Payouts/models"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/logging"
	"github.com/SwiftFiat/SwiftFiat-Payouts/utils"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	RoleCustomer = "customer"
	RoleVendor   = "vendor"
	RoleAdmin    = "admin"
)

// Server is a development stand-in for the campus withdrawal API. It keeps
// the REST contract and the business rules, with an in-memory ledger.
type Server struct {
	router  *gin.Engine
	ledger  *Ledger
	config  *utils.Config
	logger  *logging.Logger
	tokens  *utils.JWTToken
	settler *Settler
}

func NewServer(c *utils.Config, ledger *Ledger, l *logging.Logger) (*Server, error) {
	if c.SigningKey == "" {
		return nil, fmt.Errorf("SIGNING_KEY is required to run the withdrawal API")
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}

	g := gin.New()
	g.Use(gin.Recovery())
	g.Use(CORSMiddleware())
	g.Use(l.LoggingMiddleWare())

	s := &Server{
		router: g,
		ledger: ledger,
		config: c,
		logger: l,
		tokens: utils.NewJWTToken(c.SigningKey),
	}

	s.router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, models.SuccessResponse{
			Status:  "success",
			Message: apistrings.WelcomeMessage,
			Version: utils.REVISION,
		})
	})

	/// Register Object Routers Below
	Withdrawals{}.router(s)

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// SetSettler advances new withdrawals automatically
func (s *Server) SetSettler(settler *Settler) {
	s.settler = settler
}

func (s *Server) Ledger() *Ledger {
	return s.ledger
}

// IssueToken mints a bearer token for local development and tests
func (s *Server) IssueToken(userID int64, role string, ttl time.Duration) (string, error) {
	return s.tokens.CreateToken(utils.TokenObject{UserID: userID, Role: role}, ttl)
}

func (s *Server) Start() error {
	return s.router.Run(fmt.Sprintf(":%v", s.config.MockPort))
}

// jsonFieldName reports validation failures under the wire name of the field
func jsonFieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return fld.Name
}
