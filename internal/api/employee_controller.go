package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"catererp/server/internal/models"
	"catererp/server/internal/services"
)

// EmployeeController управляет API endpoints кадрового модуля
type EmployeeController struct {
	service *services.EmployeeService
}

// NewEmployeeController создает новый контроллер сотрудников
func NewEmployeeController(service *services.EmployeeService) *EmployeeController {
	return &EmployeeController{
		service: service,
	}
}

// GetEmployees получает список сотрудников
// GET /api/v1/employees?status=...
func (ec *EmployeeController) GetEmployees(c *gin.Context) {
	employees, err := ec.service.GetEmployees(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка получения сотрудников",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"employees": employees,
		"count":     len(employees),
	})
}

// GetEmployee получает сотрудника с документами охраны труда
// GET /api/v1/employees/:id
func (ec *EmployeeController) GetEmployee(c *gin.Context) {
	employee, err := ec.service.GetEmployee(c.Param("id"))
	if err != nil {
		ec.handleEmployeeError(c, err)
		return
	}

	c.JSON(http.StatusOK, employee)
}

// CreateEmployee создает сотрудника
// POST /api/v1/employees
func (ec *EmployeeController) CreateEmployee(c *gin.Context) {
	var employee models.Employee
	if err := c.ShouldBindJSON(&employee); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	if err := ec.service.CreateEmployee(&employee); err != nil {
		ec.handleEmployeeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, employee)
}

// UpdateEmployee обновляет анкетные данные сотрудника
// PUT /api/v1/employees/:id
func (ec *EmployeeController) UpdateEmployee(c *gin.Context) {
	var employee models.Employee
	if err := c.ShouldBindJSON(&employee); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	updated, err := ec.service.UpdateEmployee(c.Param("id"), &employee)
	if err != nil {
		ec.handleEmployeeError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// UpdateEmployeeStatus переводит сотрудника в новый статус
// POST /api/v1/employees/:id/status
func (ec *EmployeeController) UpdateEmployeeStatus(c *gin.Context) {
	var req StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	employee, err := ec.service.UpdateEmployeeStatus(c.Param("id"), models.EmployeeStatus(req.Status))
	if err != nil {
		ec.handleEmployeeError(c, err)
		return
	}

	c.JSON(http.StatusOK, employee)
}

// DeleteEmployee удаляет сотрудника (soft delete)
// DELETE /api/v1/employees/:id
func (ec *EmployeeController) DeleteEmployee(c *gin.Context) {
	if err := ec.service.DeleteEmployee(c.Param("id")); err != nil {
		ec.handleEmployeeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Сотрудник удален"})
}

// AddSafetyDocument добавляет документ охраны труда сотруднику
// POST /api/v1/employees/:id/documents
func (ec *EmployeeController) AddSafetyDocument(c *gin.Context) {
	var doc models.SafetyDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	if err := ec.service.AddSafetyDocument(c.Param("id"), &doc); err != nil {
		ec.handleEmployeeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// UpdateSafetyDocument обновляет документ охраны труда
// PUT /api/v1/employees/:id/documents/:docId
func (ec *EmployeeController) UpdateSafetyDocument(c *gin.Context) {
	var doc models.SafetyDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	updated, err := ec.service.UpdateSafetyDocument(c.Param("docId"), &doc)
	if err != nil {
		ec.handleEmployeeError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteSafetyDocument удаляет документ охраны труда
// DELETE /api/v1/employees/:id/documents/:docId
func (ec *EmployeeController) DeleteSafetyDocument(c *gin.Context) {
	if err := ec.service.DeleteSafetyDocument(c.Param("docId")); err != nil {
		ec.handleEmployeeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Документ удален"})
}

// GetExpiringDocuments возвращает отчет по истекающим документам охраны труда
// GET /api/v1/employees/documents/expiring?days=30
func (ec *EmployeeController) GetExpiringDocuments(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	docs, err := ec.service.GetExpiringDocuments(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка получения отчета",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"count":     len(docs),
	})
}

// handleEmployeeError переводит ошибки кадрового сервиса в HTTP-статусы
func (ec *EmployeeController) handleEmployeeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmployeeNotFound), errors.Is(err, services.ErrDocumentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateDocumentID),
		errors.Is(err, services.ErrEmployeeStatusChange):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка кадрового модуля",
			"details": err.Error(),
		})
	}
}
