package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/SwiftFiat/SwiftFiat-Payouts/api/apistrings"
	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/SwiftFiat/SwiftFiat-Payouts/models"
	"github.com/SwiftFiat/SwiftFiat-Payouts/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Withdrawals struct {
	server *Server
}

func (w Withdrawals) router(server *Server) {
	w.server = server

	auth := AuthenticatedMiddleware(server.tokens)

	serverGroupV1 := server.router.Group("/api/v1/withdrawals")
	serverGroupV1.GET("banks/", auth, w.listBanks)
	serverGroupV1.GET("banks/search/", auth, w.searchBanks)
	serverGroupV1.GET("limits/", auth, w.getLimits)
	serverGroupV1.POST("verify-account/", auth, w.verifyAccount)
	serverGroupV1.POST("withdraw/", auth, w.withdraw)
	serverGroupV1.GET("status/:id/", auth, w.getStatus)
	serverGroupV1.POST("status/:id/settle/", auth, AdminMiddleware(), w.settle)
	serverGroupV1.GET("history/", auth, w.getHistory)
	serverGroupV1.GET("stats/", auth, w.getStats)
}

func (w *Withdrawals) listBanks(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.NewSuccess(apistrings.BanksFetched, w.server.ledger.Banks()))
}

func (w *Withdrawals) searchBanks(ctx *gin.Context) {
	query := ctx.Query("q")
	if query == "" {
		ctx.JSON(http.StatusBadRequest, models.NewFieldError(apistrings.InvalidBankQuery, map[string][]string{
			"q": {"is required"},
		}))
		return
	}

	ctx.JSON(http.StatusOK, models.NewSuccess(apistrings.BanksFetched, w.server.ledger.Banks().FindBanks(query)))
}

func (w *Withdrawals) getLimits(ctx *gin.Context) {
	activeUser, err := utils.ActiveUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, models.NewError(apistrings.UserNotFound))
		return
	}

	ctx.JSON(http.StatusOK, models.NewSuccess(apistrings.LimitsFetched, w.server.ledger.Limits(activeUser.UserID)))
}

func (w *Withdrawals) verifyAccount(ctx *gin.Context) {
	request := struct {
		AccountNumber string `json:"account_number" binding:"required,len=10,number"`
		BankCode      string `json:"bank_code" binding:"required"`
	}{}

	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, models.NewFieldError(apistrings.InvalidAccountInput, fieldErrors(err)))
		return
	}

	account, err := w.server.ledger.ResolveAccount(request.AccountNumber, request.BankCode)
	if err != nil {
		w.writeLedgerError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, models.NewSuccess(apistrings.AccountResolved, account))
}

func (w *Withdrawals) withdraw(ctx *gin.Context) {
	request := struct {
		Amount        decimal.Decimal `json:"amount"`
		BankCode      string          `json:"bank_code" binding:"required"`
		AccountNumber string          `json:"account_number" binding:"required,len=10,number"`
	}{}

	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, models.NewFieldError(apistrings.InvalidWithdrawInput, fieldErrors(err)))
		return
	}
	if !request.Amount.IsPositive() {
		ctx.JSON(http.StatusBadRequest, models.NewFieldError(apistrings.InvalidWithdrawInput, map[string][]string{
			"amount": {"must be greater than zero"},
		}))
		return
	}

	activeUser, err := utils.ActiveUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, models.NewError(apistrings.UserNotFound))
		return
	}

	record, created, err := w.server.ledger.Withdraw(activeUser.UserID, domain.WithdrawalRequest{
		Amount:        request.Amount,
		BankCode:      request.BankCode,
		AccountNumber: request.AccountNumber,
	}, ctx.GetHeader("Idempotency-Key"))
	if err != nil {
		w.writeLedgerError(ctx, err)
		return
	}

	if !created {
		ctx.JSON(http.StatusOK, models.NewSuccess(apistrings.IdempotencyReplayed, record))
		return
	}

	w.server.logger.WithFields(logrus.Fields{
		"user_id":       activeUser.UserID,
		"withdrawal_id": record.ID,
		"amount":        record.Amount.String(),
	}).Info("withdrawal created")

	if w.server.settler != nil {
		if err := w.server.settler.Track(record.ID); err != nil {
			w.server.logger.Warn(fmt.Sprintf("could not schedule settlement for %s: %v", record.ID, err))
		}
	}

	ctx.JSON(http.StatusCreated, models.NewSuccess(apistrings.WithdrawalCreated, record))
}

func (w *Withdrawals) getStatus(ctx *gin.Context) {
	activeUser, err := utils.ActiveUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, models.NewError(apistrings.UserNotFound))
		return
	}

	record, err := w.server.ledger.Get(activeUser.UserID, ctx.Param("id"))
	if err != nil {
		w.writeLedgerError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, models.NewSuccess(apistrings.WithdrawalFetched, record))
}

func (w *Withdrawals) settle(ctx *gin.Context) {
	request := struct {
		Status string `json:"status" binding:"required,oneof=processing completed failed cancelled"`
		Reason string `json:"reason"`
	}{}

	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, models.NewFieldError(apistrings.InvalidSettlementData, fieldErrors(err)))
		return
	}

	record, err := w.server.ledger.Settle(ctx.Param("id"), domain.WithdrawalStatus(request.Status), request.Reason)
	if err != nil {
		w.writeLedgerError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, models.NewSuccess(apistrings.SettlementApplied, record))
}

func (w *Withdrawals) getHistory(ctx *gin.Context) {
	query := struct {
		Page    int    `form:"page,default=1" binding:"min=1"`
		PerPage int    `form:"per_page,default=10" binding:"min=1,max=100"`
		Status  string `form:"status" binding:"omitempty,oneof=pending processing completed failed cancelled"`
	}{}

	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, models.NewFieldError(apistrings.InvalidHistoryQuery, fieldErrors(err)))
		return
	}

	activeUser, err := utils.ActiveUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, models.NewError(apistrings.UserNotFound))
		return
	}

	var status *domain.WithdrawalStatus
	if query.Status != "" {
		s := domain.WithdrawalStatus(query.Status)
		status = &s
	}

	ctx.JSON(http.StatusOK, models.NewSuccess(apistrings.HistoryFetched, w.server.ledger.History(activeUser.UserID, query.Page, query.PerPage, status)))
}

func (w *Withdrawals) getStats(ctx *gin.Context) {
	query := struct {
		Period int `form:"period,default=30" binding:"min=1,max=365"`
	}{}

	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, models.NewFieldError(apistrings.InvalidStatsQuery, fieldErrors(err)))
		return
	}

	activeUser, err := utils.ActiveUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, models.NewError(apistrings.UserNotFound))
		return
	}

	ctx.JSON(http.StatusOK, models.NewSuccess(apistrings.StatsFetched, w.server.ledger.Stats(activeUser.UserID, query.Period)))
}

func (w *Withdrawals) writeLedgerError(ctx *gin.Context, err error) {
	var ruleErr *RuleError
	switch {
	case errors.As(err, &ruleErr):
		ctx.JSON(http.StatusConflict, models.NewError(ruleErr.Message))
	case errors.Is(err, ErrWithdrawalNotFound):
		ctx.JSON(http.StatusNotFound, models.NewError(apistrings.WithdrawalNotFound))
	case errors.Is(err, ErrUnknownBank):
		ctx.JSON(http.StatusUnprocessableEntity, models.NewFieldError(apistrings.UnknownBank, map[string][]string{
			"bank_code": {apistrings.UnknownBank},
		}))
	case errors.Is(err, ErrAccountUnresolved):
		ctx.JSON(http.StatusUnprocessableEntity, models.NewFieldError(apistrings.AccountNotResolved, map[string][]string{
			"account_number": {apistrings.AccountNotResolved},
		}))
	case errors.Is(err, ErrInvalidSettlement):
		ctx.JSON(http.StatusBadRequest, models.NewError(apistrings.InvalidSettlementData))
	default:
		w.server.logger.Error(fmt.Sprintf("withdrawal api error: %v", err))
		ctx.JSON(http.StatusInternalServerError, models.NewError(apistrings.ServerError))
	}
}

// fieldErrors turns binding failures into per-field messages
func fieldErrors(err error) map[string][]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string][]string{"body": {"malformed request"}}
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], describe(fe))
	}
	return fields
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "number":
		return "must contain digits only"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
