package vmware

import (
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/types"
)

const (
	vmType   = "VirtualMachine"
	taskType = "Task"
)

// vmFromMoid does not check that the VM exists.
func (m *VMManager) vmFromMoid(id string) *object.VirtualMachine {
	return object.NewVirtualMachine(m.client, refFromMoid(vmType, id))
}

// Task returns a handle on an existing task, e.g. one started from the vSphere client.
func (m *VMManager) Task(moid string) *TaskHandle {
	return NewTaskHandle(m.client, object.NewTask(m.client, refFromMoid(taskType, moid)))
}

func refFromMoid(kind, id string) types.ManagedObjectReference {
	return types.ManagedObjectReference{
		Type:  kind,
		Value: id,
	}
}
