package workflow

import "fmt"

// ReplayResult 台账重放结果
type ReplayResult struct {
	Status    Status
	StepIndex int
}

// Replay 按时间顺序重放决定台账,重建实例的状态与步骤下标
// 台账是实例历史的权威来源,重放结果与实例记录不一致即说明数据损坏
func Replay(stepCount int, decisions []Decision) (ReplayResult, error) {
	if stepCount <= 0 {
		return ReplayResult{}, fmt.Errorf("replay: step count must be positive, got %d", stepCount)
	}

	result := ReplayResult{Status: StatusInProgress, StepIndex: 0}
	for n, d := range decisions {
		if result.Status.Terminal() {
			return ReplayResult{}, fmt.Errorf("replay: decision %d (%s) recorded after terminal status %s", n, d.Kind, result.Status)
		}
		switch d.Kind {
		case KindApprove:
			if d.StepIndex != result.StepIndex {
				return ReplayResult{}, fmt.Errorf("replay: decision %d approves step %d but current step is %d", n, d.StepIndex, result.StepIndex)
			}
			if result.StepIndex == stepCount-1 {
				result.Status = StatusApproved
			} else {
				result.StepIndex++
			}
		case KindReject:
			result.Status = StatusRejected
		case KindWithdraw:
			result.Status = StatusWithdrawn
		case KindTransfer, KindEscalate:
			// 不改变状态与步骤下标
		default:
			return ReplayResult{}, fmt.Errorf("replay: decision %d has unknown kind %q", n, d.Kind)
		}
	}
	return result, nil
}
