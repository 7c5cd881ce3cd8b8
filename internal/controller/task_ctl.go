package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace_admin/internal/task"
)

// TaskController 定时任务状态与手动触发
type TaskController struct {
	taskManager *task.TaskManager
}

// NewTaskController 创建任务控制器
func NewTaskController(taskManager *task.TaskManager) *TaskController {
	return &TaskController{taskManager: taskManager}
}

// Status 各任务是否启用
// GET /api/admin/tasks
func (ctrl *TaskController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": ctrl.taskManager.Status()})
}

// TriggerOrderExpiry 立即执行一轮订单过期扫描
// POST /api/admin/tasks/order-expiry
func (ctrl *TaskController) TriggerOrderExpiry(c *gin.Context) {
	n, err := ctrl.taskManager.TriggerOrderExpiry(c.Request.Context())
	if errors.Is(err, task.ErrTaskDisabled) {
		c.JSON(http.StatusConflict, gin.H{"error": "Order expiry task is disabled"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    gin.H{"expired": n},
		"message": fmt.Sprintf("Expired %d orders", n),
	})
}
